package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/ytgrab/internal/models"
	"github.com/denisAlshanov/ytgrab/internal/services/formats"
	"github.com/denisAlshanov/ytgrab/internal/services/streamer"
	"github.com/denisAlshanov/ytgrab/internal/services/youtube"
	"github.com/denisAlshanov/ytgrab/internal/utils"
)

type VideoHandler struct {
	youtube  youtube.YouTubeClient
	streamer *streamer.Streamer
}

func NewVideoHandler(youtube youtube.YouTubeClient, streamer *streamer.Streamer) *VideoHandler {
	return &VideoHandler{
		youtube:  youtube,
		streamer: streamer,
	}
}

// GetVideoInfo godoc
// @Summary Get video information
// @Description Resolve a YouTube URL or video id and return its metadata with the muxed formats available for download
// @Tags video
// @Produce json
// @Param url query string true "YouTube URL or 11 character video id"
// @Success 200 {object} models.VideoInfoResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/video-info [get]
func (h *VideoHandler) GetVideoInfo(c *gin.Context) {
	ctx := c.Request.Context()

	videoID, appErr := resolveVideoID(c)
	if appErr != nil {
		h.errorResponse(c, appErr)
		return
	}

	info, err := h.youtube.FetchInfo(ctx, videoID)
	if err != nil {
		h.errorResponse(c, h.extractionFailure(ctx, "Failed to fetch video information", videoID, err))
		return
	}

	c.JSON(http.StatusOK, models.NewVideoInfoResponse(info))
}

// DownloadVideo godoc
// @Summary Download video
// @Description Stream a muxed audio+video format as an mp4 attachment
// @Tags video
// @Produce video/mp4
// @Param url query string true "YouTube URL or 11 character video id"
// @Param quality query string false "best (default), highest, lowest, a quality label such as 720p, or an itag"
// @Success 200 {file} binary "Video stream"
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/download [get]
func (h *VideoHandler) DownloadVideo(c *gin.Context) {
	h.download(c, models.MediaKindVideo, "Failed to download video")
}

// DownloadAudio godoc
// @Summary Download audio
// @Description Stream the best audio format as an attachment
// @Tags video
// @Produce audio/mpeg
// @Param url query string true "YouTube URL or 11 character video id"
// @Param quality query string false "best (default), lowest, or an itag"
// @Success 200 {file} binary "Audio stream"
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/download-audio [get]
func (h *VideoHandler) DownloadAudio(c *gin.Context) {
	h.download(c, models.MediaKindAudio, "Failed to download audio")
}

func (h *VideoHandler) download(c *gin.Context, kind models.MediaKind, failure string) {
	ctx := c.Request.Context()

	videoID, appErr := resolveVideoID(c)
	if appErr != nil {
		h.errorResponse(c, appErr)
		return
	}
	req := models.DownloadRequest{
		VideoID: videoID,
		Kind:    kind,
		Quality: c.Query("quality"),
	}

	info, err := h.youtube.FetchInfo(ctx, req.VideoID)
	if err != nil {
		h.errorResponse(c, h.extractionFailure(ctx, failure, req.VideoID, err))
		return
	}

	format, err := formats.Select(info.Formats, req.Kind, req.Quality)
	if err != nil {
		utils.LogWarn(ctx, "No suitable format", utils.Fields{
			"video_id": req.VideoID,
			"kind":     req.Kind,
			"quality":  req.Quality,
			"formats":  len(info.Formats),
		})
		h.errorResponse(c, utils.NewNoSuitableFormatError(err))
		return
	}

	utils.LogDebug(ctx, "Format selected", utils.Fields{
		"video_id": req.VideoID,
		"format":   format.String(),
	})

	stream, size, err := h.youtube.OpenStream(ctx, info, format)
	if err != nil {
		h.errorResponse(c, h.extractionFailure(ctx, failure, req.VideoID, err))
		return
	}
	defer stream.Close()

	if size <= 0 {
		size = format.ContentLength
	}

	_, err = h.streamer.Stream(ctx, c.Writer, stream, streamer.Attachment{
		Title:    info.Title,
		Fallback: info.ID,
		Kind:     req.Kind,
		Size:     size,
	})
	if err == nil {
		return
	}

	if errors.Is(err, streamer.ErrStreamNotStarted) {
		utils.LogError(ctx, "Stream failed before first byte", err, utils.Fields{
			"video_id": req.VideoID,
			"itag":     format.Itag,
		})
		if !c.Writer.Written() {
			h.errorResponse(c, utils.NewDownloadError(err))
		}
		return
	}

	// The response is committed; the streamer already logged the cause.
	utils.LogDebug(ctx, "Download aborted", utils.Fields{"video_id": req.VideoID})
}

func resolveVideoID(c *gin.Context) (string, *utils.AppError) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		return "", utils.NewMissingURLError()
	}

	videoID, ok := youtube.Resolve(raw)
	if !ok {
		return "", utils.NewInvalidURLError()
	}

	utils.LogDebug(c.Request.Context(), "Resolved video id", utils.Fields{"video_id": videoID})
	return videoID, nil
}

func (h *VideoHandler) extractionFailure(ctx context.Context, message, videoID string, err error) *utils.AppError {
	if errors.Is(err, youtube.ErrServiceNotReady) {
		utils.LogWarn(ctx, "YouTube client not ready", utils.Fields{"video_id": videoID})
		return utils.NewServiceNotReadyError()
	}

	utils.LogError(ctx, message, err, utils.Fields{"video_id": videoID})
	return utils.NewExtractionError(message, err)
}

func (h *VideoHandler) errorResponse(c *gin.Context, err *utils.AppError) {
	c.JSON(err.StatusCode, models.ErrorResponse{
		Error:     err.Message,
		Details:   err.Details,
		Code:      string(err.Code),
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
