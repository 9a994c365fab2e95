// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultDownloadTimeout bounds a single download request.
	DefaultDownloadTimeout = 30 * time.Minute
	// DefaultProgressFreq is how often yt-dlp progress is sampled.
	DefaultProgressFreq = 200 * time.Millisecond
	// DefaultSimulateTime is the default time to simulate processing in the mock downloader.
	DefaultSimulateTime = 1 * time.Second
	// DefaultFileTTL is the default time-to-live for downloaded files.
	DefaultFileTTL = 24 * time.Hour
	// DefaultCleanupInterval is how often expired files are looked for.
	DefaultCleanupInterval = time.Hour
)

// Output naming.
const (
	// TargetContainer is the container every download ends up in.
	TargetContainer = "mp4"
	// FallbackTitle names the output file when the video has no usable title.
	FallbackTitle = "youtube_video"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespInfoRetrieved is returned with video metadata.
	RespInfoRetrieved = "video info retrieved"
	// RespInfoFail is returned when metadata could not be fetched.
	RespInfoFail = "video info could not be loaded, check that the url is correct and the video is public"
	// RespDownloadFinished is returned when the file is ready.
	RespDownloadFinished = "download finished"
	// RespDownloadFail is returned when the download failed.
	RespDownloadFail = "download failed, try another resolution or check the url"
	// RespDownloadInProgress is returned when the same file is already being produced.
	RespDownloadInProgress = "download already in progress"
	// RespFilesListed is returned with the stored files.
	RespFilesListed = "stored files listed"
	// RespFileNotFound is returned when a file is not found.
	RespFileNotFound = "file not found"
)

// Downloader identifiers.
const (
	// DownloaderYTdlp is the yt-dlp downloader identifier.
	DownloaderYTdlp = "ytdlp"
	// DownloaderMock is the mock downloader identifier for testing.
	DownloaderMock = "mock"
)
