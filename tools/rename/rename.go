package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mogaika/assetrename/batch"
	"github.com/mogaika/assetrename/config"
	"github.com/mogaika/assetrename/format"
	"github.com/mogaika/assetrename/rename"
	"github.com/mogaika/assetrename/session"
	"github.com/mogaika/assetrename/status"

	"github.com/pkg/errors"
)

const (
	exitOK = iota
	exitFileFailed
	exitBatchFailed
)

// opFlag appends to one list shared by every kind, so operations keep the
// order they were given in regardless of their kind.
type opFlag struct {
	kind string
	list *[]config.JobOperation
}

func (f opFlag) String() string { return "" }

func (f opFlag) Set(v string) error {
	*f.list = append(*f.list, config.JobOperation{Kind: f.kind, Operand: v})
	return nil
}

type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

type options struct {
	ops         []config.JobOperation
	outputs     listFlag
	jobPath     string
	keepVersion bool
	keepEndian  bool
	version     string
	endian      string
	workers     int
	encoding    string
	verbose     bool
	quiet       bool

	set map[string]bool
}

func parseFlags(args []string, output io.Writer) (*options, []string, error) {
	o := &options{}
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: rename [flags] file.mesh|file.skeleton ...\n")
		fs.PrintDefaults()
	}

	fs.Var(opFlag{"skeleton", &o.ops}, "skeleton", "Set the linked skeleton of meshes (raw value)")
	fs.Var(opFlag{"bone", &o.ops}, "bone", "Rename bone 'old:new'")
	fs.Var(opFlag{"animation", &o.ops}, "animation", "Rename animation 'old:new'")
	fs.Var(opFlag{"material", &o.ops}, "material", "Rebind material 'old:new' on every sub-part using it")
	fs.Var(opFlag{"submesh", &o.ops}, "submesh", "Rename sub-part 'old:new'")
	fs.Var(&o.outputs, "out", "Output file, once per input. Omit to overwrite inputs")
	fs.StringVar(&o.jobPath, "job", "", "Job file (.yaml, .yml or .toml) with operations and save options")
	fs.BoolVar(&o.keepVersion, "keep-version", true, "Save with the version the file was loaded with")
	fs.BoolVar(&o.keepEndian, "keep-endian", true, "Save with the byte order the file was loaded with")
	fs.StringVar(&o.version, "version", "", "Save with this version label, e.g. [MeshSerializer_v1.41]")
	fs.StringVar(&o.endian, "endian", "", "Save with this byte order: little, big or native")
	fs.IntVar(&o.workers, "workers", 1, "Files processed at the same time")
	fs.StringVar(&o.encoding, "encoding", config.DefaultEncoding,
		fmt.Sprintf("Name string encoding, one of %v", strings.Join(config.ListEncodings(), ", ")))
	fs.BoolVar(&o.verbose, "v", false, "Debug output")
	fs.BoolVar(&o.quiet, "q", false, "Only warnings and errors")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, fs.Args(), nil
}

// merge applies the job file under the command line: flags that were given
// explicitly win, list values are appended after the job's.
func (o *options) merge(job *config.Job, inputs []string) ([]string, []string, []config.JobOperation, session.SaveOptions) {
	save := session.SaveOptions{
		KeepVersion: config.Bool(job.Save.KeepVersion, true),
		KeepEndian:  config.Bool(job.Save.KeepEndian, true),
		Version:     job.Save.Version,
	}
	endian := job.Save.Endian
	if o.set["keep-version"] {
		save.KeepVersion = o.keepVersion
	}
	if o.set["keep-endian"] {
		save.KeepEndian = o.keepEndian
	}
	if o.set["version"] {
		save.Version = o.version
	}
	if o.set["endian"] {
		endian = o.endian
	}
	if endian != "" {
		// resolved by the caller, which can report the error
		o.endian = endian
	}
	if job.Encoding != "" && !o.set["encoding"] {
		o.encoding = job.Encoding
	}
	if job.Workers != 0 && !o.set["workers"] {
		o.workers = job.Workers
	}

	ops := append(append([]config.JobOperation(nil), job.Operations...), o.ops...)
	return append(job.Inputs, inputs...), append(job.Outputs, o.outputs...), ops, save
}

func run(args []string, output io.Writer) int {
	o, inputs, err := parseFlags(args, output)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitBatchFailed
	}

	switch {
	case o.verbose:
		status.SetLevel(status.DEBUG)
	case o.quiet:
		status.SetLevel(status.WARN)
	}
	log := status.New(output)

	job := &config.Job{}
	if o.jobPath != "" {
		if job, err = config.LoadJob(o.jobPath); err != nil {
			log.Errorf("%v", err)
			return exitBatchFailed
		}
	}
	inputs, outputs, jobOps, save := o.merge(job, inputs)

	if o.endian != "" {
		if save.Order, err = format.ParseOrder(o.endian); err != nil {
			log.Errorf("%v", err)
			return exitBatchFailed
		}
	}
	if err := config.SetEncoding(o.encoding); err != nil {
		log.Errorf("%v", err)
		return exitBatchFailed
	}

	ops := make([]rename.Operation, 0, len(jobOps))
	for _, jo := range jobOps {
		op, err := rename.Parse(jo.Kind, jo.Operand)
		if err != nil {
			log.Errorf("-%s %q: %v", jo.Kind, jo.Operand, err)
			return exitBatchFailed
		}
		ops = append(ops, op)
	}

	if len(inputs) == 0 {
		log.Errorf("no input files")
		return exitBatchFailed
	}

	report, err := batch.Run(inputs, outputs, ops, batch.Options{
		Workers:   o.workers,
		Save:      save,
		LogOutput: output,
	})
	if err != nil {
		log.Errorf("%v", err)
		return exitBatchFailed
	}
	if len(report.Failed()) != 0 {
		return exitFileFailed
	}
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
