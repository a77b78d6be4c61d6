package main

import (
	"encoding/json"
	"hash/fnv"
	"log"
	"math"
	"net/http"
	"time"
)

// mock-trends serves a deterministic interest-over-time endpoint so the
// analyzer can be exercised locally without touching a real upstream.

type seriesRequest struct {
	Keywords    []string `json:"keywords"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Geo         string   `json:"geo"`
	Granularity string   `json:"granularity"`
}

type wirePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/interest-over-time", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req seriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		start, err := time.Parse("2006-01-02", req.Start)
		if err != nil {
			http.Error(w, "bad start date", http.StatusBadRequest)
			return
		}
		end, err := time.Parse("2006-01-02", req.End)
		if err != nil || end.Before(start) {
			http.Error(w, "bad end date", http.StatusBadRequest)
			return
		}
		if req.Granularity != "daily" && req.Granularity != "monthly" {
			http.Error(w, "unknown granularity", http.StatusBadRequest)
			return
		}
		if len(req.Keywords) == 0 || len(req.Keywords) > 5 {
			http.Error(w, "1-5 keywords required", http.StatusUnprocessableEntity)
			return
		}

		series := make(map[string][]wirePoint, len(req.Keywords))
		for _, kw := range req.Keywords {
			series[kw] = synthSeries(kw, req.Granularity, start, end)
		}
		writeJSON(w, map[string]any{"series": series})
	})

	logger := log.New(log.Writer(), "trends-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9000",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9000")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// synthSeries produces a keyword-seeded wave in the 0-100 interest range.
// The same keyword and window always yield the same values, and every 41st
// point comes back negative to exercise the missing-data path downstream.
func synthSeries(keyword, granularity string, start, end time.Time) []wirePoint {
	h := fnv.New32a()
	_, _ = h.Write([]byte(keyword))
	seed := h.Sum32()

	base := 20 + float64(seed%50)
	phase := float64(seed % 360)
	period := 60.0
	if granularity == "monthly" {
		period = 6.0
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	var points []wirePoint
	for i, cursor := 0, start; !cursor.After(end); i++ {
		value := base + 15*math.Sin(2*math.Pi*(float64(i)+phase)/period)
		if i > 0 && i%97 == 0 {
			value += 35
		}
		value = math.Round(math.Max(0, math.Min(100, value)))
		if i > 0 && i%41 == 0 {
			value = -1
		}
		points = append(points, wirePoint{Date: cursor.Format("2006-01-02"), Value: value})

		if granularity == "monthly" {
			cursor = cursor.AddDate(0, 1, 0)
		} else {
			cursor = cursor.AddDate(0, 0, 1)
		}
	}
	return points
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
