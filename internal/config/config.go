// Package config handles application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// defaultEnvFile is read when New is called without explicit files. It may be absent.
const defaultEnvFile = ".env"

// Config holds the application configuration.
type Config struct {
	App        App
	HTTP       HTTP
	Dir        Dir
	Download   Download
	Storage    Storage
	DepManager DepManager
}

// App holds application-wide configuration.
type App struct {
	LogLevel  string `env:"TUBEFETCH_APP_LOG_LEVEL"  envDefault:"info"`
	LogSource bool   `env:"TUBEFETCH_APP_LOG_SOURCE" envDefault:"false"`
	// LogFile receives the terminal app's logs so they do not corrupt the screen.
	LogFile string `env:"TUBEFETCH_APP_LOG_FILE" envDefault:"./data/tubefetch-tui.log"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"TUBEFETCH_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"TUBEFETCH_HTTP_HANDLER_TIMEOUT"  envDefault:"30s"`
	DownloadTimeout time.Duration `env:"TUBEFETCH_HTTP_DOWNLOAD_TIMEOUT" envDefault:"30m"`
	ShutdownTimeout time.Duration `env:"TUBEFETCH_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for downloads, cache, and cookie file.
type Dir struct {
	Downloads string `env:"TUBEFETCH_DIR_DOWNLOAD" envDefault:"./data/downloads"` // produced mp4 files
	Cache     string `env:"TUBEFETCH_DIR_CACHE"    envDefault:"./data/cache"`     // yt-dlp cache (meta, sigs)

	// netscape cookies.txt
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"TUBEFETCH_DIR_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// Download holds settings for the metadata and download phases.
type Download struct {
	// Downloader selects the backend: "ytdlp" or "mock".
	Downloader string `env:"TUBEFETCH_DOWNLOAD_DOWNLOADER" envDefault:"ytdlp"`
	// ProgressFreq is how often the backend reports progress.
	ProgressFreq time.Duration `env:"TUBEFETCH_DOWNLOAD_PROGRESS_FREQ" envDefault:"200ms"`
	// DefaultResolution is used when a request does not name one.
	DefaultResolution string `env:"TUBEFETCH_DOWNLOAD_DEFAULT_RESOLUTION" envDefault:"720p"`
	// Proxy is passed to yt-dlp as is, e.g. socks5h://127.0.0.1:1080.
	Proxy string `env:"TUBEFETCH_DOWNLOAD_PROXY" envDefault:""`

	// Resolution is the parsed DefaultResolution.
	Resolution entity.Resolution `env:"-"`
}

// Storage holds produced file retention configuration.
type Storage struct {
	TTL             time.Duration `env:"TUBEFETCH_STORAGE_TTL"              envDefault:"24h"`
	CleanupInterval time.Duration `env:"TUBEFETCH_STORAGE_CLEANUP_INTERVAL" envDefault:"1h"`
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"TUBEFETCH_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries looks binaries up in PATH instead of downloading them.
	UseSystemBinaries bool `env:"TUBEFETCH_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"true"`
	// UpdateInterval is how often to check for binary updates, 0 disables the checker
	UpdateInterval time.Duration `env:"TUBEFETCH_DEPMANAGER_UPDATE_INTERVAL" envDefault:"24h"`

	YTdlpSHA256SumsURL string `env:"TUBEFETCH_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"TUBEFETCH_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"TUBEFETCH_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll

	FFmpegSHA256SumsURL string `env:"TUBEFETCH_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"TUBEFETCH_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"TUBEFETCH_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	DenoSHA256SumsURL string `env:"TUBEFETCH_DEPMANAGER_DENO_SHA256SUMS_URL" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-aarch64-unknown-linux-gnu.zip.sha256sum,https://github.com/denoland/deno/releases/latest/download/deno-x86_64-unknown-linux-gnu.zip.sha256sum"` //nolint:lll
	DenoLinuxARM64    string `env:"TUBEFETCH_DEPMANAGER_DENO_LINUX_ARM64" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-aarch64-unknown-linux-gnu.zip"`                                                                                                                    //nolint:lll
	DenoLinuxAMD64    string `env:"TUBEFETCH_DEPMANAGER_DENO_LINUX_AMD64" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-x86_64-unknown-linux-gnu.zip"`                                                                                                                     //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// New loads configuration from dotenv files overlaid by the process environment.
// Without arguments it reads ./.env if present. Explicitly named files must exist.
func New(envFiles ...string) (*Config, error) {
	fileEnv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	err = env.ParseWithOptions(cfg, env.Options{Environment: mergeEnv(fileEnv, os.Environ())})
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	res, err := entity.ParseResolution(c.Download.DefaultResolution)
	if err != nil {
		return fmt.Errorf("default resolution: %w", err)
	}

	c.Download.Resolution = res

	switch c.Download.Downloader {
	case consts.DownloaderYTdlp, consts.DownloaderMock:
	default:
		return fmt.Errorf("unknown downloader %q", c.Download.Downloader)
	}

	if c.HTTP.HandlerTimeout <= 0 {
		c.HTTP.HandlerTimeout = consts.DefaultHandlerTimeout
	}

	if c.HTTP.DownloadTimeout <= 0 {
		c.HTTP.DownloadTimeout = consts.DefaultDownloadTimeout
	}

	if c.Download.ProgressFreq <= 0 {
		c.Download.ProgressFreq = consts.DefaultProgressFreq
	}

	if c.Storage.TTL <= 0 {
		c.Storage.TTL = consts.DefaultFileTTL
	}

	if c.Storage.CleanupInterval <= 0 {
		c.Storage.CleanupInterval = consts.DefaultCleanupInterval
	}

	return nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	optional := len(files) == 0
	if optional {
		files = []string{defaultEnvFile}
	}

	merged := make(map[string]string)

	for _, file := range files {
		vars, err := godotenv.Read(file)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("read env file %s: %w", file, err)
		}

		maps.Copy(merged, vars)
	}

	return merged, nil
}

// mergeEnv lets process variables take precedence over dotenv values.
func mergeEnv(fileEnv map[string]string, environ []string) map[string]string {
	out := make(map[string]string, len(fileEnv)+len(environ))
	maps.Copy(out, fileEnv)

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		out[k] = v
	}

	return out
}
