package chessclock

// PlayerState is one side's time record. Bounds are enforced by Clock queries, not here.
type PlayerState struct {
	Elapsed Centis `json:"elapsed"`
	Lag     Centis `json:"lag"`
	Limit   Centis `json:"limit"`
	Berserk bool   `json:"berserk"`
}

func newPlayerState(limit Centis) PlayerState {
	return PlayerState{Limit: limit}
}

// Remaining is Limit minus Elapsed and may be negative
func (p PlayerState) Remaining() Centis {
	return p.Limit - p.Elapsed
}

// GiveTime adds t to the limit; t may be negative.
func (p PlayerState) GiveTime(t Centis) PlayerState {
	p.Limit = p.Limit.Add(t)
	return p
}

func (p PlayerState) AddElapsed(t Centis) PlayerState {
	p.Elapsed = p.Elapsed.Add(t)
	return p
}

func (p PlayerState) WithLag(lag Centis) PlayerState {
	p.Lag = lag
	return p
}
