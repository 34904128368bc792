package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/klauspost/compress/zstd"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// multipartThreshold is the encoded size above which reports are uploaded
// in parts.
const multipartThreshold = 8 << 20

// ReportArchiver stores tick reports as zstd-compressed JSON.
type ReportArchiver struct {
	blob   domain.BlobWriter
	prefix string
}

// NewReportArchiver creates a ReportArchiver writing under prefix
// (default "reports").
func NewReportArchiver(blob domain.BlobWriter, prefix string) *ReportArchiver {
	if prefix == "" {
		prefix = "reports"
	}
	return &ReportArchiver{blob: blob, prefix: prefix}
}

// Key is the object path of rep: <prefix>/YYYY/MM/DD/<id>.json.zst.
func (a *ReportArchiver) Key(rep domain.TickReport) string {
	return path.Join(a.prefix, rep.StartedAt.UTC().Format("2006/01/02"), rep.ID+".json.zst")
}

// Archive compresses and uploads rep, returning its key.
func (a *ReportArchiver) Archive(ctx context.Context, rep domain.TickReport) (string, error) {
	data, err := EncodeReport(rep)
	if err != nil {
		return "", err
	}
	key := a.Key(rep)
	if len(data) > multipartThreshold {
		err = a.blob.PutMultipart(ctx, key, bytes.NewReader(data), multipartThreshold)
	} else {
		err = a.blob.Put(ctx, key, bytes.NewReader(data), "application/zstd")
	}
	if err != nil {
		return "", fmt.Errorf("report_archiver: upload %s: %w", key, err)
	}
	return key, nil
}

// EncodeReport returns rep as zstd-compressed JSON.
func EncodeReport(rep domain.TickReport) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("report_archiver: zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(rep); err != nil {
		enc.Close()
		return nil, fmt.Errorf("report_archiver: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("report_archiver: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeReport reverses EncodeReport.
func DecodeReport(data []byte) (domain.TickReport, error) {
	var rep domain.TickReport
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return rep, fmt.Errorf("report_archiver: zstd reader: %w", err)
	}
	defer dec.Close()
	if err := json.NewDecoder(dec).Decode(&rep); err != nil {
		return rep, fmt.Errorf("report_archiver: decode: %w", err)
	}
	return rep, nil
}
