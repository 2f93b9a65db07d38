// Package batch runs one rename operation list over a list of files.
package batch

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/rename"
	"github.com/mogaika/assetrename/session"
	"github.com/mogaika/assetrename/status"

	"github.com/pkg/errors"
)

var ErrArityMismatch = errors.New("arity mismatch")

type Stage int

const (
	StagePending Stage = iota
	StageSkipped
	StageLoad
	StageTransform
	StageSave
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageSkipped:
		return "skipped"
	case StageLoad:
		return "load"
	case StageTransform:
		return "transform"
	case StageSave:
		return "save"
	case StageDone:
		return "done"
	}
	return "unknown"
}

type Options struct {
	// more than one processes files concurrently
	Workers int

	// nil detects the byte order of every input
	LoadOrder binary.ByteOrder
	Save      session.SaveOptions

	// per file diagnostics are flushed here in input order
	LogOutput io.Writer
}

// Result is the outcome of one input file. Stage is the last stage the
// file reached; when Err is set it is the stage that failed.
type Result struct {
	JobID  uuid.UUID
	Input  string
	Output string
	Kind   asset.Kind
	Stage  Stage
	Stats  rename.Stats
	Err    error
}

func (r Result) Failed() bool { return r.Err != nil }

type Report struct {
	Results []Result
}

func (r *Report) Failed() []Result {
	list := make([]Result, 0)
	for _, res := range r.Results {
		if res.Failed() {
			list = append(list, res)
		}
	}
	return list
}

func (r *Report) Skipped() []Result {
	list := make([]Result, 0)
	for _, res := range r.Results {
		if res.Stage == StageSkipped {
			list = append(list, res)
		}
	}
	return list
}

// Outputs pairs every input with its output path. An empty outputs list
// means every file is rewritten in place.
func Outputs(inputs, outputs []string) ([]string, error) {
	if len(outputs) == 0 {
		return append([]string(nil), inputs...), nil
	}
	if len(outputs) != len(inputs) {
		return nil, errors.Wrapf(ErrArityMismatch, "%d inputs, %d outputs", len(inputs), len(outputs))
	}
	return append([]string(nil), outputs...), nil
}

// Run checks the input/output pairing and then processes every input. A
// failure of one file is recorded in its Result and does not stop the rest.
// The only error returned is ErrArityMismatch, before any file is touched.
func Run(inputs, outputs []string, ops []rename.Operation, opts Options) (*Report, error) {
	outputs, err := Outputs(inputs, outputs)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logOutput := opts.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	engine := rename.NewEngine(ops)

	total := len(inputs)
	results := make([]Result, total)
	logs := make([]bytes.Buffer, total)
	done := make([]chan struct{}, total)
	for i := range done {
		done[i] = make(chan struct{})
	}

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processFile(inputs[idx], outputs[idx], engine, opts, &logs[idx])
				close(done[idx])
			}
		}()
	}
	go func() {
		for i := range inputs {
			jobs <- i
		}
		close(jobs)
	}()

	batchLog := status.New(logOutput)
	for i := range inputs {
		<-done[i]
		logOutput.Write(logs[i].Bytes())
		logs[i].Reset()
		batchLog.Progress(float32(i+1)/float32(total), "%d/%d %s", i+1, total, inputs[i])
	}
	wg.Wait()

	report := &Report{Results: results}
	if failed := len(report.Failed()); failed != 0 {
		batchLog.Errorf("%d of %d files failed", failed, total)
	} else {
		batchLog.Infof("%d files processed, %d skipped", total, len(report.Skipped()))
	}
	return report, nil
}

func processFile(input, output string, engine *rename.Engine, opts Options, logBuf io.Writer) Result {
	res := Result{
		JobID:  uuid.New(),
		Input:  input,
		Output: output,
		Kind:   asset.KindForPath(input),
		Stage:  StagePending,
	}
	log := status.New(logBuf).With("file", input, "job", res.JobID.String()[:8])

	if res.Kind == asset.KindUnknown {
		log.Warnf("unrecognized extension, skipping")
		res.Stage = StageSkipped
		return res
	}

	fail := func(err error) Result {
		res.Err = errors.Wrapf(err, "%v: %s", res.Stage, input)
		log.Errorf("%v failed: %v", res.Stage, err)
		return res
	}

	res.Stage = StageLoad
	s, err := session.Load(input, session.LoadOptions{Order: opts.LoadOrder, Log: log})
	if err != nil {
		return fail(err)
	}

	res.Stage = StageTransform
	if res.Stats, err = engine.Apply(s.Model, log); err != nil {
		return fail(err)
	}

	res.Stage = StageSave
	if err := s.Save(output, opts.Save); err != nil {
		return fail(err)
	}

	res.Stage = StageDone
	log.Infof("saved %s (%d applied, %d skipped)", output, res.Stats.Applied, res.Stats.Skipped)
	return res
}
