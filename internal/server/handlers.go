package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/batch"
	"example.com/balisegate/internal/bits"
	"example.com/balisegate/internal/common"
	"example.com/balisegate/internal/dict"
	"example.com/balisegate/internal/report"
)

// Server holds the decoding defaults shared by all handlers and the
// artifacts produced by report requests.
type Server struct {
	artifacts   *ArtifactStore
	workDir     string
	store       *dict.Store
	concurrency int
	version     balise.Version
	lang        report.Language
	maxBody     int64
	metrics     *common.Metrics
}

// Artifact represents a file generated by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	SHA256      string
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	cfg, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "telegramd-")
	if err != nil {
		return nil, err
	}
	metrics := common.NewMetrics()
	metrics.Start()
	return &Server{
		artifacts:   &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:     workDir,
		store:       cfg.store,
		concurrency: cfg.concurrency,
		version:     cfg.version,
		lang:        cfg.lang,
		maxBody:     cfg.maxBody,
		metrics:     metrics,
	}, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

// Metrics returns the server's running counters.
func (s *Server) Metrics() *common.Metrics {
	return s.metrics
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	digest, err := common.FileDigest(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        digest.Size,
		SHA256:      digest.SHA256,
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

func (s *Server) versionParam(raw string) (balise.Version, error) {
	if strings.TrimSpace(raw) == "" {
		return s.version, nil
	}
	return balise.ParseVersion(raw)
}

type decodeRequest struct {
	Hex        string `json:"hex"`
	Version    string `json:"version,omitempty"`
	Headerless bool   `json:"headerless,omitempty"`
}

// decode returns the document and the HTTP status to report problems with.
func (s *Server) decode(req decodeRequest) (report.Document, int, error) {
	if strings.TrimSpace(req.Hex) == "" {
		return report.Document{}, http.StatusBadRequest, errors.New("hex required")
	}
	var doc report.Document
	var decodeErr error
	if req.Headerless {
		v, err := s.versionParam(req.Version)
		if err != nil {
			return report.Document{}, http.StatusBadRequest, err
		}
		var packets []*balise.Packet
		packets, decodeErr = balise.DecodeHex(req.Hex, v)
		doc = report.FromPackets(packets, balise.CatalogFor(v), s.store, decodeErr)
	} else {
		var t *balise.Telegram
		t, decodeErr = balise.DecodeTelegram(req.Hex)
		if t == nil {
			s.metrics.Record(0, 0, true)
			return report.Document{}, http.StatusUnprocessableEntity, decodeErr
		}
		doc = report.FromTelegram(t, s.store, decodeErr)
	}
	s.metrics.Record(len(doc.Packets), doc.Bits, decodeErr != nil)
	if decodeErr != nil {
		common.Debugf("decode %s: %v", req.Hex, decodeErr)
	}
	return doc, http.StatusOK, nil
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	doc, status, err := s.decode(req)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type encodeResponse struct {
	Hex      string   `json:"hex"`
	Bits     string   `json:"bits"`
	Length   int      `json:"length"`
	Overflow []string `json:"overflow,omitempty"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in balise.TelegramInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	encoded, err := in.Encode(s.version)
	if encoded == "" {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := encodeResponse{
		Hex:    bits.BinaryToHex(encoded),
		Bits:   encoded,
		Length: len(encoded),
	}
	if err != nil {
		resp.Overflow = strings.Split(err.Error(), "\n")
		common.Warnf("encode: %v", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

type defaultResponse struct {
	Packet report.PacketDoc `json:"packet"`
	Bits   string           `json:"bits"`
	Hex    string           `json:"hex"`
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	v, err := s.versionParam(q.Get("version"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tag, err := strconv.ParseUint(q.Get("tag"), 10, 8)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid tag %q", q.Get("tag")), http.StatusBadRequest)
		return
	}
	catalog := balise.CatalogFor(v)
	layout, ok := catalog.Layout(uint8(tag))
	if !ok {
		http.Error(w, fmt.Sprintf("tag %d not in %s", tag, catalog.Name), http.StatusNotFound)
		return
	}
	p := layout.Default()
	doc := report.FromPackets([]*balise.Packet{p}, catalog, s.store, nil)
	encoded := p.Encode()
	writeJSON(w, http.StatusOK, defaultResponse{
		Packet: doc.Packets[0],
		Bits:   encoded,
		Hex:    bits.BinaryToHex(encoded),
	})
}

type catalogEntry struct {
	Tag       int    `json:"tag"`
	Name      string `json:"name"`
	HasLength bool   `json:"hasLength"`
}

type catalogResponse struct {
	Catalog string         `json:"catalog"`
	Version string         `json:"version"`
	Packets []catalogEntry `json:"packets"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, err := s.versionParam(r.URL.Query().Get("version"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	catalog := balise.CatalogFor(v)
	resp := catalogResponse{Catalog: catalog.Name, Version: v.String()}
	for _, l := range catalog.Layouts() {
		resp.Packets = append(resp.Packets, catalogEntry{Tag: l.Tag, Name: l.Name, HasLength: l.HasLength()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	v, err := s.versionParam(q.Get("version"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	headerless, _ := strconv.ParseBool(q.Get("headerless"))
	inputs, err := batch.ReadInputs(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	nd := NewNDJSONWriter(w)
	opts := batch.Options{
		Workers:    s.concurrency,
		Headerless: headerless,
		Version:    v,
		Store:      s.store,
		Metrics:    s.metrics,
	}
	start := time.Now()
	failed := 0
	err = batch.Stream(r.Context(), inputs, opts, func(res batch.Result) error {
		if res.Failed() {
			failed++
		}
		return nd.WriteObject(res)
	})
	if err != nil {
		common.Warnf("batch aborted after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return
	}
	common.Logf("batch: %d telegrams, %d failed in %s", nd.Lines(), failed, time.Since(start).Round(time.Millisecond))
}

type reportRequest struct {
	decodeRequest
	Format string `json:"format,omitempty"`
	Lang   string `json:"lang,omitempty"`
}

type reportResponse struct {
	Artifact ArtifactRef `json:"artifact"`
	Error    string      `json:"error,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	lang := s.lang
	if strings.TrimSpace(req.Lang) != "" {
		parsed, err := report.ParseLanguage(req.Lang)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lang = parsed
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "json" {
		http.Error(w, fmt.Sprintf("unsupported format %q", req.Format), http.StatusBadRequest)
		return
	}
	doc, status, err := s.decode(req.decodeRequest)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	path, err := s.tempPath("report-*." + format)
	if err != nil {
		http.Error(w, fmt.Sprintf("report temp: %v", err), http.StatusInternalServerError)
		return
	}
	if format == "pdf" {
		err = report.SavePDF(doc, path, lang)
	} else {
		err = report.SaveJSON(doc, path)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("write report: %v", err), http.StatusInternalServerError)
		return
	}
	art, err := s.addArtifact(path, "telegram."+format, "", "report")
	if err != nil {
		http.Error(w, fmt.Sprintf("register report: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Artifact: toRef(art), Error: doc.Error})
}

type statsResponse struct {
	Telegrams int64   `json:"telegrams"`
	Packets   int64   `json:"packets"`
	Bits      int64   `json:"bits"`
	Failures  int64   `json:"failures"`
	Rate      float64 `json:"telegramsPerSecond"`
	Artifacts int     `json:"artifacts"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.metrics.Snapshot()
	s.artifacts.mu.RLock()
	n := len(s.artifacts.entries)
	s.artifacts.mu.RUnlock()
	writeJSON(w, http.StatusOK, statsResponse{
		Telegrams: snap.Telegrams,
		Packets:   snap.Packets,
		Bits:      snap.Bits,
		Failures:  snap.Failures,
		Rate:      snap.TelegramsPerSecond(),
		Artifacts: n,
	})
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	io.Copy(w, f)
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		SHA256:      art.SHA256,
		Kind:        art.Kind,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".ndjson":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}
