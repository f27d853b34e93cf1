package parser

// ProgressReporter is satisfied by *progressbar.ProgressBar.
type ProgressReporter interface {
	Add(num int) error
	Finish() error
}

// ProgressFactory creates a reporter for a run over total records.
type ProgressFactory func(total int, description string) ProgressReporter

type noopProgress struct{}

func (noopProgress) Add(int) error { return nil }
func (noopProgress) Finish() error { return nil }

func NoopProgressFactory(int, string) ProgressReporter {
	return noopProgress{}
}
