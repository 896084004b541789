package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/calendar"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/internal/timeparse"
	"github.com/bookline-ai/booking-agent/pkg/logger"
	"github.com/bookline-ai/booking-agent/pkg/metrics"
)

// AvailabilityHandler handles calendar lookup endpoints.
type AvailabilityHandler struct {
	reader          calendar.Reader
	parser          timeparse.Parser
	defaultDuration time.Duration
	logger          *logger.Logger
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(reader calendar.Reader, parser timeparse.Parser, defaultDuration time.Duration, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		reader:          reader,
		parser:          parser,
		defaultDuration: defaultDuration,
		logger:          log,
	}
}

// Get handles GET /availability/{date}
//
// The date segment accepts ISO dates as well as phrases the chat endpoint
// understands ("tomorrow", "next monday"). Duration comes from the optional
// `duration` query in minutes, falling back to the phrase and then to the
// configured slot length.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	phrase := chi.URLParam(r, "date")
	if unescaped, err := url.PathUnescape(phrase); err == nil {
		phrase = unescaped
	}

	res, err := h.parser.Resolve(ctx, phrase, time.Now())
	if err != nil || res.Date == nil {
		writeError(w, http.StatusBadRequest, "unrecognized date")
		return
	}

	duration := h.defaultDuration
	if res.Duration > 0 {
		duration = res.Duration
	}
	if d := r.URL.Query().Get("duration"); d != "" {
		minutes, convErr := strconv.Atoi(d)
		if convErr != nil || minutes <= 0 {
			writeError(w, http.StatusBadRequest, "duration must be a positive number of minutes")
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	slots, err := h.reader.ListSlots(ctx, *res.Date, duration)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDuration) {
			writeError(w, http.StatusBadRequest, "duration must evenly divide the business day")
			return
		}
		h.logger.Error("availability lookup failed",
			zap.String("date", res.Date.Format("2006-01-02")),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list availability")
		return
	}

	metrics.SlotsReturned.Observe(float64(len(slots)))

	if slots == nil {
		slots = []model.TimeSlot{}
	}

	writeJSON(w, http.StatusOK, model.AvailabilityResponse{
		Date:  res.Date.Format("2006-01-02"),
		Slots: slots,
	})
}
