// Package depmanager locates or installs the external programs the downloader drives:
// yt-dlp, the ffmpeg transcoder (with ffprobe) and the deno runtime yt-dlp uses for
// some extractors. Checksums are used only to detect new releases, not to verify downloads.
package depmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/errs"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
	BinaryDeno    BinaryName = "deno"
)

const (
	// downloadTimeout is the HTTP client timeout for downloading binaries.
	downloadTimeout = 10 * time.Minute
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
	// filePermReadWrite is the file permission for regular files.
	filePermReadWrite = 0o644
	// sha256HexLength is the expected length of SHA256 hex string.
	sha256HexLength = 64
	// savedSumsFilename stores the checksums seen at the last install.
	savedSumsFilename = ".sha256sums.json"
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// artifact is one release asset and the binaries it provides.
type artifact struct {
	url      string
	sumsURLs []string
	provides []BinaryName
	required bool
}

// asset is the file name used in checksum lists.
func (a artifact) asset() string {
	return path.Base(a.url)
}

// Manager manages binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      config.DepManager
	platform Platform
	client   *http.Client

	mu         sync.RWMutex
	remoteSums map[string]string     // asset -> sha256 fetched from upstream
	savedSums  map[string]string     // asset -> sha256 recorded at the last install
	paths      map[BinaryName]string // binary -> usable path

	updating atomic.Bool
	onUpdate func(name BinaryName)
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg config.DepManager) *Manager {
	return &Manager{
		log:        log.With(slog.String("package", "depmanager")),
		cfg:        cfg,
		platform:   Platform{OS: runtime.GOOS, Arch: runtime.GOARCH},
		client:     &http.Client{Timeout: downloadTimeout},
		remoteSums: make(map[string]string),
		savedSums:  make(map[string]string),
		paths:      make(map[BinaryName]string),
	}
}

// OnUpdate registers fn to be called for every binary the update checker replaces.
func (m *Manager) OnUpdate(fn func(name BinaryName)) {
	m.onUpdate = fn
}

// Start makes the binaries available, either from PATH or by installing them into BinsDir.
// When installing, a background update checker runs until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.UseSystemBinaries {
		return m.LookupSystem(ctx)
	}

	if err := m.Install(ctx); err != nil {
		return err
	}

	go m.runUpdateChecker(ctx)

	return nil
}

// Path returns the resolved path of a binary, or "" when it is not available.
func (m *Manager) Path(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.paths[name]
}

// HasTranscoder reports whether ffmpeg is available.
func (m *Manager) HasTranscoder() bool {
	return m.Path(BinaryFFmpeg) != ""
}

// LookupSystem resolves binaries from PATH. Only yt-dlp is mandatory.
func (m *Manager) LookupSystem(ctx context.Context) error {
	for _, art := range m.artifacts() {
		for _, name := range art.provides {
			found, err := exec.LookPath(string(name))
			if err != nil {
				if art.required {
					return fmt.Errorf("%w: %s in PATH: %w", errs.ErrBinaryNotFound, name, err)
				}

				m.log.WarnContext(ctx, "optional binary not found in PATH", slog.String("binary", string(name)))

				continue
			}

			m.setPath(name, found)
		}
	}

	m.log.InfoContext(ctx, "using system binaries", slog.Any("binaries", m.snapshot()))

	return nil
}

// Install downloads missing binaries into BinsDir and records upstream checksums.
// Optional binaries that fail to install are logged and skipped.
func (m *Manager) Install(ctx context.Context) error {
	log := m.log

	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	if err := m.loadSavedSums(); err != nil {
		log.DebugContext(ctx, "no saved checksums found, first run", slog.Any("error", err))
	}

	for _, art := range m.artifacts() {
		if m.installed(art) {
			m.register(art)

			continue
		}

		if err := m.installArtifact(ctx, art); err != nil {
			if art.required {
				return fmt.Errorf("install %s: %w", art.provides[0], err)
			}

			log.WarnContext(ctx, "optional binary not installed",
				slog.String("binary", string(art.provides[0])),
				slog.Any("error", err))
		}
	}

	log.InfoContext(ctx, "binaries ready", slog.Any("binaries", m.snapshot()))

	if err := m.refreshSums(ctx); err != nil {
		log.WarnContext(ctx, "failed to refresh checksums", slog.Any("error", err))
	}

	return nil
}

// binaryPath is where a binary lives inside BinsDir.
func (m *Manager) binaryPath(name BinaryName) string {
	filename := string(name)
	if m.platform.OS == "windows" {
		filename += ".exe"
	}

	return filepath.Join(m.cfg.BinsDir, filename)
}

func (m *Manager) artifacts() []artifact {
	cfg := m.cfg

	return []artifact{
		{
			url:      m.pick(cfg.YTdlpLinuxARM64, cfg.YTdlpLinuxAMD64),
			sumsURLs: splitList(cfg.YTdlpSHA256SumsURL),
			provides: []BinaryName{BinaryYTdlp},
			required: true,
		},
		{
			url:      m.pick(cfg.FFmpegLinuxARM64, cfg.FFmpegLinuxAMD64),
			sumsURLs: splitList(cfg.FFmpegSHA256SumsURL),
			provides: []BinaryName{BinaryFFmpeg, BinaryFFprobe},
		},
		{
			url:      m.pick(cfg.DenoLinuxARM64, cfg.DenoLinuxAMD64),
			sumsURLs: splitList(cfg.DenoSHA256SumsURL),
			provides: []BinaryName{BinaryDeno},
		},
	}
}

// pick returns the URL for the current platform, "" when there is none.
func (m *Manager) pick(linuxARM64, linuxAMD64 string) string {
	switch m.platform.String() {
	case "linux/arm64":
		return linuxARM64
	case "linux/amd64":
		return linuxAMD64
	default:
		return ""
	}
}

func (m *Manager) installed(art artifact) bool {
	for _, name := range art.provides {
		info, err := os.Stat(m.binaryPath(name))
		if err != nil || info.Size() == 0 {
			return false
		}
	}

	return true
}

func (m *Manager) register(art artifact) {
	for _, name := range art.provides {
		m.setPath(name, m.binaryPath(name))
	}
}

func (m *Manager) setPath(name BinaryName, p string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paths[name] = p
}

func (m *Manager) snapshot() map[BinaryName]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.paths)
}

// installArtifact downloads one asset and unpacks or moves it into BinsDir.
func (m *Manager) installArtifact(ctx context.Context, art artifact) error {
	if art.url == "" {
		return fmt.Errorf("%w: no download URL for %s", errs.ErrUnsupportedPlatform, m.platform)
	}

	log := m.log.With(slog.String("binary", string(art.provides[0])), slog.String("url", art.url))
	log.InfoContext(ctx, "downloading binary")

	tmpPath, err := m.fetch(ctx, art.url)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	if isArchive(art.asset()) {
		members := make([]string, 0, len(art.provides))
		for _, name := range art.provides {
			members = append(members, filepath.Base(m.binaryPath(name)))
		}

		if err := unpack(tmpPath, m.cfg.BinsDir, art.asset(), members); err != nil {
			return fmt.Errorf("unpack: %w", err)
		}
	} else if err := os.Rename(tmpPath, m.binaryPath(art.provides[0])); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	for _, name := range art.provides {
		if err := os.Chmod(m.binaryPath(name), filePermExecutable); err != nil {
			return fmt.Errorf("chmod %s: %w", name, err)
		}
	}

	m.register(art)

	log.InfoContext(ctx, "binary installed")

	return nil
}

// fetch downloads url into a temporary file inside BinsDir and returns its path.
func (m *Manager) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(m.cfg.BinsDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	_, err = io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmp.Name())

		return "", fmt.Errorf("write temp file: %w", err)
	}

	return tmp.Name(), nil
}

// runUpdateChecker periodically reinstalls binaries whose upstream checksum changed.
func (m *Manager) runUpdateChecker(ctx context.Context) {
	if m.cfg.UpdateInterval <= 0 {
		return
	}

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndUpdate(ctx)
		}
	}
}

func (m *Manager) checkAndUpdate(ctx context.Context) {
	if !m.updating.CompareAndSwap(false, true) {
		return
	}
	defer m.updating.Store(false)

	log := m.log

	if err := m.fetchSums(ctx); err != nil {
		log.WarnContext(ctx, "update check: failed to fetch checksums", slog.Any("error", err))

		return
	}

	outdated := m.outdated()
	if len(outdated) == 0 {
		log.DebugContext(ctx, "update check: no updates available")

		return
	}

	for _, art := range outdated {
		if err := m.installArtifact(ctx, art); err != nil {
			log.ErrorContext(ctx, "update check: failed to update binary",
				slog.String("binary", string(art.provides[0])),
				slog.Any("error", err))

			continue
		}

		log.InfoContext(ctx, "update check: binary updated", slog.String("binary", string(art.provides[0])))

		if m.onUpdate != nil {
			m.onUpdate(art.provides[0])
		}
	}

	if err := m.saveSums(); err != nil {
		log.WarnContext(ctx, "update check: failed to save checksums", slog.Any("error", err))
	}
}

// outdated returns artifacts whose upstream checksum differs from the recorded one.
func (m *Manager) outdated() []artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []artifact

	for _, art := range m.artifacts() {
		if art.url == "" {
			continue
		}

		remote, ok := m.remoteSums[art.asset()]
		if !ok {
			continue
		}

		if saved, ok := m.savedSums[art.asset()]; !ok || saved != remote {
			out = append(out, art)
		}
	}

	return out
}

func (m *Manager) refreshSums(ctx context.Context) error {
	if err := m.fetchSums(ctx); err != nil {
		return err
	}

	return m.saveSums()
}

// fetchSums downloads every configured checksum list.
func (m *Manager) fetchSums(ctx context.Context) error {
	var urls []string
	for _, art := range m.artifacts() {
		urls = append(urls, art.sumsURLs...)
	}

	if len(urls) == 0 {
		return errors.New("no SHA256 sums URLs configured")
	}

	for _, url := range urls {
		body, err := m.get(ctx, url)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}

		sums := ParseSums(body)

		m.mu.Lock()
		maps.Copy(m.remoteSums, sums)
		m.mu.Unlock()
	}

	return nil
}

func (m *Manager) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

// ParseSums parses "hash  filename" lines. Malformed lines are ignored.
func ParseSums(content string) map[string]string {
	sums := make(map[string]string)

	for line := range strings.Lines(content) {
		fields := strings.Fields(line)
		if len(fields) != 2 || len(fields[0]) != sha256HexLength {
			continue
		}

		sums[strings.TrimPrefix(fields[1], "*")] = strings.ToLower(fields[0])
	}

	return sums
}

func (m *Manager) loadSavedSums() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename))
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	saved := make(map[string]string)
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	m.mu.Lock()
	m.savedSums = saved
	m.mu.Unlock()

	return nil
}

func (m *Manager) saveSums() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.remoteSums, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename), data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	m.savedSums = maps.Clone(m.remoteSums)

	return nil
}

func splitList(raw string) []string {
	var out []string

	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
