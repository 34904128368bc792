package domain

// Participant is the synthetic identity that owns bot listings and bids.
type Participant struct {
	Account int64  `json:"account"`
	GUID    int64  `json:"guid"`
	Name    string `json:"name"`
}

// BotSet recognises every synthetic participant so bots never trade with
// each other.
type BotSet map[int64]struct{}

// NewBotSet builds a BotSet from GUIDs.
func NewBotSet(guids ...int64) BotSet {
	s := make(BotSet, len(guids))
	for _, g := range guids {
		s[g] = struct{}{}
	}
	return s
}

// Contains reports whether guid belongs to a bot.
func (s BotSet) Contains(guid int64) bool {
	_, ok := s[guid]
	return ok
}
