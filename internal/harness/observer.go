package harness

// Observer receives run events as they happen. All calls come from the
// goroutine running Harness.Run, in order.
type Observer interface {
	// CaseStarted is called before a non-skipped case is executed.
	CaseStarted(name, command string)

	// CaseFinished is called once per case, skipped cases included.
	CaseFinished(r CaseResult)

	// Finished is called once after the last case. It is not called when
	// the run is interrupted.
	Finished(s *Summary)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) CaseStarted(name, command string) {
	for _, obs := range o {
		obs.CaseStarted(name, command)
	}
}

func (o Observers) CaseFinished(r CaseResult) {
	for _, obs := range o {
		obs.CaseFinished(r)
	}
}

func (o Observers) Finished(s *Summary) {
	for _, obs := range o {
		obs.Finished(s)
	}
}
