package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/batch"
	"example.com/balisegate/internal/bits"
	"example.com/balisegate/internal/common"
	"example.com/balisegate/internal/dict"
	"example.com/balisegate/internal/report"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command func(args []string, e env) error

var commands = map[string]command{
	"decode":  decodeCmd,
	"encode":  encodeCmd,
	"default": defaultCmd,
	"batch":   batchCmd,
	"report":  reportCmd,
	"catalog": catalogCmd,
}

func main() {
	os.Exit(run(os.Args[1:], env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}))
}

func run(args []string, e env) int {
	if len(args) == 0 {
		usage(e.stdout)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(e.stdout)
		return 2
	}
	if err := cmd(args[1:], e); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(e.stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `telegramctl %s (built %s) <command> [options]

Commands:
  decode   [<hex> | --in <file>] [--binary] [--headerless --version <v>] [--json]
  encode   --in <telegram.yaml|json> [--version <v>] [--bits]
  default  --tag <n> [--version <v>] [--json]
  batch    --in <file|-> [--out <file>] [--workers <n>] [--headerless --version <v>] [--progress] [--metrics]
  report   [<hex> | --in <file>] --out <report.pdf|json> [--lang en|de] [--headerless --version <v>]
  catalog  [--version <v>]

Every command accepts --dict <labels.json|yaml> and --debug.
`, version, buildDate)
}

type globalFlags struct {
	dict  string
	debug bool
}

func newFlagSet(name string, e env) (*pflag.FlagSet, *globalFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	g := &globalFlags{}
	fs.StringVar(&g.dict, "dict", "", "label override dictionary (JSON or YAML)")
	fs.BoolVar(&g.debug, "debug", false, "enable debug logging")
	return fs, g
}

// apply configures logging and loads the override dictionary, if any.
func (g *globalFlags) apply() (*dict.Store, error) {
	common.SetDebug(g.debug)
	if g.dict == "" {
		return nil, nil
	}
	store, err := dict.EnsureLoaded(g.dict)
	if err != nil {
		return nil, err
	}
	if err := store.Validate(balise.VariableWidth); err != nil {
		return nil, err
	}
	return store, nil
}

// readHex takes the telegram from the first positional argument, then the
// --in file, then stdin.
func readHex(positional []string, path string, stdin io.Reader) (string, error) {
	if len(positional) > 0 {
		return strings.TrimSpace(positional[0]), nil
	}
	var data []byte
	var err error
	if path != "" && path != "-" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", err
	}
	h := strings.TrimSpace(string(data))
	if h == "" {
		return "", errors.New("no telegram given")
	}
	return h, nil
}

type decodeFlags struct {
	in         string
	binary     bool
	headerless bool
	version    string
}

func addDecodeFlags(fs *pflag.FlagSet) *decodeFlags {
	d := &decodeFlags{}
	fs.StringVar(&d.in, "in", "", "file holding the telegram hex (default stdin)")
	fs.BoolVar(&d.binary, "binary", false, "input is a '0'/'1' bit string instead of hex")
	fs.BoolVar(&d.headerless, "headerless", false, "input is a bare packet sequence")
	fs.StringVar(&d.version, "version", "2.0", "system version for headerless input (X.Y or M_VERSION)")
	return d
}

// document decodes the input. A decode error that still produced a document
// is recorded in Document.Error and returned as well.
func (d *decodeFlags) document(in string, store *dict.Store) (report.Document, error) {
	s := bits.HexToBinary(in)
	if d.binary {
		if !bits.IsBinary(in) {
			return report.Document{}, errors.New("--binary input contains characters other than 0 and 1")
		}
		s = in
	}
	if d.headerless {
		v, err := balise.ParseVersion(d.version)
		if err != nil {
			return report.Document{}, err
		}
		packets, decodeErr := balise.Decode(s, v)
		return report.FromPackets(packets, balise.CatalogFor(v), store, decodeErr), decodeErr
	}
	t, decodeErr := balise.DecodeTelegramBits(s)
	if t == nil {
		return report.Document{}, decodeErr
	}
	return report.FromTelegram(t, store, decodeErr), decodeErr
}

func decodeCmd(args []string, e env) error {
	fs, g := newFlagSet("decode", e)
	d := addDecodeFlags(fs)
	asJSON := fs.Bool("json", false, "print the decoded document as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := g.apply()
	if err != nil {
		return err
	}
	h, err := readHex(fs.Args(), d.in, e.stdin)
	if err != nil {
		return err
	}
	doc, decodeErr := d.document(h, store)
	if doc.Catalog == "" {
		return decodeErr
	}
	if *asJSON {
		if err := writeJSON(e.stdout, doc); err != nil {
			return err
		}
	} else {
		printDocument(e.stdout, doc)
	}
	return decodeErr
}

func encodeCmd(args []string, e env) error {
	fs, g := newFlagSet("encode", e)
	in := fs.String("in", "", "telegram description, YAML or JSON (default stdin)")
	ver := fs.String("version", "2.0", "system version when the input names none")
	showBits := fs.Bool("bits", false, "also print the bit string")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := g.apply(); err != nil {
		return err
	}
	def, err := balise.ParseVersion(*ver)
	if err != nil {
		return err
	}
	var data []byte
	if *in != "" && *in != "-" {
		data, err = os.ReadFile(*in)
	} else {
		data, err = io.ReadAll(e.stdin)
	}
	if err != nil {
		return err
	}
	var input balise.TelegramInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse %s: %w", emptyFallback(*in, "stdin"), err)
	}
	encoded, err := input.Encode(def)
	if encoded == "" {
		return err
	}
	if err != nil {
		common.Warnf("%v", err)
	}
	fmt.Fprintln(e.stdout, bits.BinaryToHex(encoded))
	if *showBits {
		fmt.Fprintln(e.stdout, encoded)
	}
	return nil
}

func defaultCmd(args []string, e env) error {
	fs, g := newFlagSet("default", e)
	tag := fs.Int("tag", -1, "packet tag (NID_PACKET)")
	ver := fs.String("version", "2.0", "system version selecting the catalog")
	asJSON := fs.Bool("json", false, "print the packet as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := g.apply()
	if err != nil {
		return err
	}
	if *tag < 0 || *tag > balise.EndTag {
		return errors.New("required: --tag 0..255")
	}
	v, err := balise.ParseVersion(*ver)
	if err != nil {
		return err
	}
	catalog := balise.CatalogFor(v)
	layout, ok := catalog.Layout(uint8(*tag))
	if !ok {
		return fmt.Errorf("%w %d in %s", balise.ErrUnknownPacket, *tag, catalog.Name)
	}
	p := layout.Default()
	doc := report.FromPackets([]*balise.Packet{p}, catalog, store, nil)
	if *asJSON {
		return writeJSON(e.stdout, doc.Packets[0])
	}
	printPacket(e.stdout, doc.Packets[0].Name, doc.Packets[0])
	fmt.Fprintln(e.stdout, bits.BinaryToHex(p.Encode()))
	return nil
}

func catalogCmd(args []string, e env) error {
	fs, g := newFlagSet("catalog", e)
	ver := fs.String("version", "2.0", "system version selecting the catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := g.apply(); err != nil {
		return err
	}
	v, err := balise.ParseVersion(*ver)
	if err != nil {
		return err
	}
	catalog := balise.CatalogFor(v)
	fmt.Fprintf(e.stdout, "%s (version %s)\n", catalog.Name, v)
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNAME\tDEFAULT BITS")
	for _, l := range catalog.Layouts() {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", l.Tag, l.Name, l.Default().BitLen())
	}
	return tw.Flush()
}

func batchCmd(args []string, e env) error {
	fs, g := newFlagSet("batch", e)
	in := fs.String("in", "-", "file with one telegram hex per line, or - for stdin")
	out := fs.String("out", "", "NDJSON output file (default stdout)")
	workers := fs.Int("workers", 0, "concurrent decoders (default one per CPU)")
	headerless := fs.Bool("headerless", false, "inputs are bare packet sequences")
	ver := fs.String("version", "2.0", "system version for headerless inputs")
	progress := fs.Bool("progress", false, "display progress on stderr")
	metricsFlag := fs.Bool("metrics", false, "print throughput metrics when done")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := g.apply()
	if err != nil {
		return err
	}
	v, err := balise.ParseVersion(*ver)
	if err != nil {
		return err
	}

	var src io.Reader = e.stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	var dst io.Writer = e.stdout
	if *out != "" {
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	metrics := common.NewMetrics()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stopProgress := func() {}
	if *progress {
		stopProgress = common.StartProgressPrinter(e.stderr, metrics, 500*time.Millisecond)
	}
	sum, err := batch.Run(ctx, src, dst, batch.Options{
		Workers:    *workers,
		Headerless: *headerless,
		Version:    v,
		Store:      store,
		Metrics:    metrics,
	})
	stopProgress()
	if err != nil {
		return err
	}
	if *metricsFlag {
		fmt.Fprintln(e.stderr, metrics.Snapshot().String())
	}
	common.Logf("batch: %d telegrams, %d failed", sum.Total, sum.Failed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d telegrams failed to decode", sum.Failed, sum.Total)
	}
	return nil
}

func reportCmd(args []string, e env) error {
	fs, g := newFlagSet("report", e)
	d := addDecodeFlags(fs)
	out := fs.String("out", "", "output file, .pdf or .json")
	langFlag := fs.String("lang", "en", "report language (en, de)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := g.apply()
	if err != nil {
		return err
	}
	if *out == "" {
		return errors.New("required: --out")
	}
	lang, err := report.ParseLanguage(*langFlag)
	if err != nil {
		return err
	}
	h, err := readHex(fs.Args(), d.in, e.stdin)
	if err != nil {
		return err
	}
	doc, decodeErr := d.document(h, store)
	if doc.Catalog == "" {
		return decodeErr
	}
	if decodeErr != nil {
		common.Warnf("%v", decodeErr)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".json":
		err = report.SaveJSON(doc, *out)
	default:
		err = report.SavePDF(doc, *out, lang)
	}
	if err != nil {
		return err
	}
	digest, err := common.FileDigest(*out)
	if err != nil {
		return err
	}
	common.Logf("report written to %s (%d bytes, sha256 %s)", *out, digest.Size, digest.SHA256)
	return nil
}

func printDocument(w io.Writer, doc report.Document) {
	if doc.Version != "" {
		fmt.Fprintf(w, "Telegram version %s, %s, %d bits\n", doc.Version, doc.Catalog, doc.Bits)
	} else {
		fmt.Fprintf(w, "Packets (%s), %d bits\n", doc.Catalog, doc.Bits)
	}
	fmt.Fprintln(w, doc.Hex)
	if doc.Header != nil {
		fmt.Fprintln(w)
		printPacket(w, "Header", *doc.Header)
	}
	for i, p := range doc.Packets {
		fmt.Fprintln(w)
		printPacket(w, fmt.Sprintf("%d. %s (%d)", i+1, p.Name, p.Tag), p)
	}
	if doc.Error != "" {
		fmt.Fprintf(w, "\nstopped: %s\n", doc.Error)
	}
}

func printPacket(w io.Writer, title string, p report.PacketDoc) {
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range p.Fields {
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\n", f.Key, f.Value, f.Bits, f.Label)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
