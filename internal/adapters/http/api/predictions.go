package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/okian/mmx/internal/domain/series"
	"github.com/okian/mmx/internal/domain/types"
)

// defaultMaxUploadBytes caps the multipart body when no option overrides it.
const defaultMaxUploadBytes = 32 << 20

// memoryBufferBytes is the in-memory threshold for multipart parsing;
// larger file parts spill to disk.
const memoryBufferBytes = 8 << 20

// PredictionsHandler serves POST /predictions: a multipart upload of spend
// CSVs (optionally plus a sales CSV) that yields a dated sales forecast.
type PredictionsHandler struct {
	deps           Dependencies
	maxUploadBytes int64
}

// NewPredictionsHandler creates a predictions handler.
func NewPredictionsHandler(deps Dependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps, maxUploadBytes: defaultMaxUploadBytes}
}

// HandleCreatePrediction accepts the upload, stages the files in a
// throwaway directory and runs the prediction pipeline over it. The staging
// directory is removed before the response is written, success or not.
func (h *PredictionsHandler) HandleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%s not allowed on /predictions", r.Method))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(memoryBufferBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_multipart", fmt.Errorf("parse multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp spill files

	dir, err := h.stageUploads(r.MultipartForm)
	if err != nil {
		if dir != "" {
			os.RemoveAll(dir) //nolint:errcheck,gosec // throwaway dir
		}
		writeError(w, http.StatusBadRequest, "bad_upload", err)
		return
	}
	defer os.RemoveAll(dir) //nolint:errcheck // throwaway dir

	result, err := h.deps.Predict(r.Context(), dir)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPredictionResponse(result))
}

// stageUploads writes every uploaded file part into a fresh temporary
// directory. File names are flattened to their base so an upload cannot
// escape the staging directory.
func (h *PredictionsHandler) stageUploads(form *multipart.Form) (string, error) {
	var headers []*multipart.FileHeader
	for _, field := range form.File {
		headers = append(headers, field...)
	}
	if len(headers) == 0 {
		return "", ErrNoFiles
	}

	dir, err := os.MkdirTemp("", "mmx-upload-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	for _, hdr := range headers {
		name := filepath.Base(hdr.Filename)
		if name == "" || name == "." || name == string(filepath.Separator) {
			return dir, fmt.Errorf("%w: %q", ErrBadFileName, hdr.Filename)
		}
		if err := saveUpload(hdr, filepath.Join(dir, name)); err != nil {
			return dir, err
		}
	}
	return dir, nil
}

func saveUpload(hdr *multipart.FileHeader, dst string) error {
	src, err := hdr.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", hdr.Filename, err)
	}
	defer src.Close() //nolint:errcheck // read-only part

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("stage upload %s: %w", hdr.Filename, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("stage upload %s: %w", hdr.Filename, err)
	}
	return out.Close()
}

func toPredictionResponse(result *types.PredictionResult) predictionResponse {
	points := make([]forecastPoint, len(result.Forecast))
	for i, p := range result.Forecast {
		points[i] = forecastPoint{
			Date:           p.Date.Format(series.DateLayout),
			PredictedSales: p.PredictedSales,
		}
	}
	resp := predictionResponse{
		Forecast:        points,
		ModelType:       result.ModelKind,
		AdstockDecay:    result.AdstockDecay,
		RowsProcessed:   result.RowsProcessed,
		EvaluationError: result.EvaluationError,
	}
	if result.Evaluation != nil {
		resp.Evaluation = &evaluationResponse{
			MAPE:                result.Evaluation.MAPE,
			R2:                  result.Evaluation.R2,
			ExcludedZeroActuals: result.Evaluation.ExcludedZeroActuals,
		}
	}
	return resp
}
