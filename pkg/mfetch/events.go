package mfetch

// Event messages delivered by ChannelReporter.
type FetchFailedMsg struct {
	Name string
	Err  error
}

type SavingMsg struct {
	Name       string
	StatusCode int
}

type SaveFailedMsg struct {
	Name string
	Err  error
}

type VerifyFailedMsg struct {
	Name string
	Err  error
}

type SummaryMsg struct {
	Saved int
	Total int
}

// ChannelReporter forwards progress as messages on a channel, for callers
// that render progress themselves. Sends block, so the channel must be
// drained (or buffered) while a fetch runs.
type ChannelReporter struct {
	C chan<- any
}

func (r ChannelReporter) FetchFailed(name string, err error) {
	r.C <- FetchFailedMsg{Name: name, Err: err}
}

func (r ChannelReporter) Saving(name string, statusCode int) {
	r.C <- SavingMsg{Name: name, StatusCode: statusCode}
}

func (r ChannelReporter) SaveFailed(name string, err error) {
	r.C <- SaveFailedMsg{Name: name, Err: err}
}

func (r ChannelReporter) VerifyFailed(name string, err error) {
	r.C <- VerifyFailedMsg{Name: name, Err: err}
}

func (r ChannelReporter) Summary(saved, total int) {
	r.C <- SummaryMsg{Saved: saved, Total: total}
}
