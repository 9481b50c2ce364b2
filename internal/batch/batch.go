// Package batch decodes many telegrams concurrently and reports them in
// input order.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/common"
	"example.com/balisegate/internal/dict"
	"example.com/balisegate/internal/report"
)

// maxLine bounds one input line; a long telegram is 208 hex digits.
const maxLine = 64 * 1024

// Input is one telegram read from a batch source.
type Input struct {
	Line int
	Hex  string
}

// Result is the outcome for one Input. Document is set whenever anything
// decoded; Error explains an early stop.
type Result struct {
	Line     int              `json:"line"`
	Input    string           `json:"input"`
	Document *report.Document `json:"document,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (r Result) Failed() bool { return r.Error != "" }

type Options struct {
	// Workers caps concurrent decodes; zero means one per CPU.
	Workers int
	// Headerless inputs are bare packet sequences decoded with Version.
	Headerless bool
	Version    balise.Version
	Store      *dict.Store
	Metrics    *common.Metrics
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Summary counts the results of a Run.
type Summary struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

// ReadInputs reads one hex telegram per line. Blank lines and lines
// starting with '#' are skipped.
func ReadInputs(r io.Reader) ([]Input, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	var out []Input
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, Input{Line: line, Hex: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", line+1, err)
	}
	return out, nil
}

// Stream decodes inputs on a bounded pool and calls emit once per input, in
// input order, from a single goroutine. It returns the first emit error or
// the context error.
func Stream(ctx context.Context, inputs []Input, opts Options, emit func(Result) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(inputs))
	ready := make([]chan struct{}, len(inputs))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	emitted := make(chan error, 1)
	go func() {
		err := emitInOrder(ctx, results, ready, emit)
		if err != nil {
			cancel()
		}
		emitted <- err
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			results[i] = decodeOne(inputs[i], opts)
			close(ready[i])
			return nil
		})
	}
	_ = g.Wait()
	return <-emitted
}

func emitInOrder(ctx context.Context, results []Result, ready []chan struct{}, emit func(Result) error) error {
	for i := range results {
		select {
		case <-ready[i]:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := emit(results[i]); err != nil {
			return err
		}
	}
	return nil
}

// Decode is Stream collecting the results.
func Decode(ctx context.Context, inputs []Input, opts Options) ([]Result, error) {
	out := make([]Result, 0, len(inputs))
	err := Stream(ctx, inputs, opts, func(r Result) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Run reads inputs from r and writes one NDJSON result per input to w.
func Run(ctx context.Context, r io.Reader, w io.Writer, opts Options) (Summary, error) {
	var sum Summary
	inputs, err := ReadInputs(r)
	if err != nil {
		return sum, err
	}
	if opts.Metrics != nil {
		opts.Metrics.SetTotal(int64(len(inputs)))
		opts.Metrics.Start()
		defer opts.Metrics.Stop()
	}
	enc := json.NewEncoder(w)
	err = Stream(ctx, inputs, opts, func(res Result) error {
		sum.Total++
		if res.Failed() {
			sum.Failed++
		}
		return enc.Encode(res)
	})
	return sum, err
}

func decodeOne(in Input, opts Options) Result {
	res := Result{Line: in.Line, Input: in.Hex}
	var (
		doc report.Document
		err error
	)
	if opts.Headerless {
		var packets []*balise.Packet
		packets, err = balise.DecodeHex(in.Hex, opts.Version)
		doc = report.FromPackets(packets, balise.CatalogFor(opts.Version), opts.Store, err)
	} else {
		var t *balise.Telegram
		t, err = balise.DecodeTelegram(in.Hex)
		if t == nil {
			res.Error = err.Error()
			opts.Metrics.Record(0, 0, true)
			common.Debugf("line %d: %v", in.Line, err)
			return res
		}
		doc = report.FromTelegram(t, opts.Store, err)
	}
	res.Document = &doc
	if err != nil {
		res.Error = err.Error()
		common.Debugf("line %d: %v", in.Line, err)
	}
	opts.Metrics.Record(len(doc.Packets), doc.Bits, err != nil)
	return res
}

