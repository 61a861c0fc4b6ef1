package handlers

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"pharma-dashboard/internal/analytics"
	"pharma-dashboard/internal/dataset"
	"pharma-dashboard/internal/errors"
	"pharma-dashboard/internal/observability"
	"pharma-dashboard/internal/services"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const (
	uploadField     = "file"
	multipartMemory = 8 << 20
	exportBaseName  = "filtered_sales"
)

type UploadHandlers struct {
	analytics    *services.Analytics
	logger       *slog.Logger
	parseTimeout time.Duration
}

func NewUploadHandlers(analytics *services.Analytics, logger *slog.Logger, parseTimeout time.Duration) *UploadHandlers {
	return &UploadHandlers{
		analytics:    analytics,
		logger:       logger,
		parseTimeout: parseTimeout,
	}
}

type uploadResult struct {
	Loaded  bool     `json:"loaded"`
	Name    string   `json:"name,omitempty"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns,omitempty"`
	Message string   `json:"message,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// HandleUpload accepts either a multipart form with a "file" field or a raw
// text/csv body. Browsers are redirected back to the dashboard; API callers
// get JSON.
func (h *UploadHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "upload")
	defer span.End(h.logger)

	sessionID := observability.GetSessionID(ctx)
	logger := observability.LoggerFrom(ctx, h.logger)

	body, name, err := uploadBody(r)
	if err != nil {
		span.SetError(err)
		h.fail(w, r, err)
		return
	}
	if body == nil {
		h.done(w, r, uploadResult{Message: "업로드된 파일이 없습니다."})
		return
	}
	defer body.Close()
	span.SetTag("upload.name", name)

	parseCtx, cancel := context.WithTimeout(ctx, h.parseTimeout)
	defer cancel()

	ds, err := h.analytics.Load(parseCtx, sessionID, body, name)
	switch {
	case stderrors.Is(err, dataset.ErrEmpty):
		logger.Info("empty upload", "name", name)
		h.done(w, r, uploadResult{Name: name, Message: "파일에 데이터가 없습니다."})
		return
	case err != nil:
		span.SetError(err)
		h.fail(w, r, err)
		return
	}

	span.SetTag("upload.rows", fmt.Sprint(len(ds.Rows)))
	h.done(w, r, uploadResult{
		Loaded:  true,
		Name:    ds.Name,
		Rows:    len(ds.Rows),
		Columns: ds.Layout.Headers(),
	})
}

// uploadBody returns a nil body when the form carries no file. A selected but
// empty file is returned as is so loading it clears the session.
func uploadBody(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", errors.Unsupported("Content-Type must be multipart/form-data or text/csv")
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if stderrors.As(err, &tooLarge) {
				return nil, "", err
			}
			return nil, "", errors.BadRequestWrap(err, "malformed multipart upload")
		}
		file, header, err := r.FormFile(uploadField)
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		if err != nil {
			return nil, "", errors.BadRequestWrap(err, "could not read uploaded file")
		}
		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			file.Close()
			return nil, "", errors.Unsupported("only .csv files are accepted")
		}
		return file, filepath.Base(header.Filename), nil

	case "text/csv", "text/plain", "application/octet-stream":
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
		return r.Body, name, nil

	default:
		return nil, "", errors.Unsupported(fmt.Sprintf("unsupported upload type %q", mediaType))
	}
}

func (h *UploadHandlers) done(w http.ResponseWriter, r *http.Request, res uploadResult) {
	if wantsJSON(r) {
		errors.WriteSuccessWithHeaders(w, res, map[string]string{"Cache-Control": noStore})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UploadHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := uploadError(err)
	if wantsJSON(r) {
		errors.WriteError(w, h.logger, appErr, observability.GetRequestID(r.Context()))
		return
	}

	observability.LoggerFrom(r.Context(), h.logger).Warn("upload rejected", "error", err)
	http.Redirect(w, r, "/?upload_error="+url.QueryEscape(appErr.Message), http.StatusSeeOther)
}

func uploadError(err error) *errors.AppError {
	var appErr *errors.AppError
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.As(err, &tooLarge):
		return errors.TooLarge(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case dataset.IsValidation(err):
		return errors.ValidationWrap(err, validationMessage(err))
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(err, "parsing the upload took too long")
	default:
		return errors.InternalWrap(err, "could not process upload")
	}
}

func validationMessage(err error) string {
	var missing *dataset.MissingColumnsError
	if stderrors.As(err, &missing) {
		return "필수 컬럼이 없습니다: " + strings.Join(missing.Columns, ", ")
	}
	var row *dataset.RowError
	if stderrors.As(err, &row) {
		return row.Error()
	}
	return err.Error()
}

type ExportHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewExportHandlers(analytics *services.Analytics, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{analytics: analytics, logger: logger}
}

// HandleDownload sends the filtered detail rows as an attachment. The same
// filter parameters as /api/details apply.
func (h *ExportHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	d, ok := h.analytics.Dashboard(observability.GetSessionID(r.Context()))
	if !ok {
		errors.WriteError(w, h.logger, errors.NoDataset(), requestID)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = services.FormatCSV
	}

	var buf bytes.Buffer
	if err := d.Export(&buf, analytics.ParseFilterSet(r.URL.Query()), format); err != nil {
		if stderrors.Is(err, services.ErrInvalidArgument) {
			errors.WriteError(w, h.logger, errors.BadRequestWrap(err, err.Error()), requestID)
			return
		}
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "export failed"), requestID)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == services.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": exportBaseName + "." + format,
	}))
	w.Header().Set("Cache-Control", noStore)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("download interrupted", "error", err, "request_id", requestID)
	}
}
