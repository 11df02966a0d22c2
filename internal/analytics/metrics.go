package analytics

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Metrics aggregates the events consumed from the topic.
type Metrics struct {
	mu            sync.Mutex
	tierCounts    map[string]int
	columnCounts  map[int]int
	winnerCounts  map[string]int
	gameDurations []float64
	gamesPerDay   map[string]int
	totalMoves    int
	totalGames    int
}

func NewMetrics() *Metrics {
	return &Metrics{
		tierCounts:   make(map[string]int),
		columnCounts: make(map[int]int),
		winnerCounts: make(map[string]int),
		gamesPerDay:  make(map[string]int),
	}
}

// Record routes e to the matching counter; unknown events are ignored.
func (m *Metrics) Record(e Event) {
	switch e.Event {
	case EventMoveSelected:
		m.recordMoveSelected(e.Payload)
	case EventGameFinished:
		m.recordGameFinished(e.Payload, e.Timestamp)
	}
}

func (m *Metrics) recordMoveSelected(payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalMoves++
	if tier, ok := payload["tier"].(string); ok {
		m.tierCounts[tier]++
	}
	// JSON numbers decode as float64.
	if col, ok := payload["column"].(float64); ok {
		m.columnCounts[int(col)]++
	}
}

func (m *Metrics) recordGameFinished(payload map[string]any, timestamp time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalGames++
	winner, _ := payload["winner"].(string)
	if winner == "" {
		winner = "draw"
	}
	m.winnerCounts[winner]++
	if duration, ok := payload["duration"].(float64); ok {
		m.gameDurations = append(m.gameDurations, duration)
	}
	m.gamesPerDay[timestamp.Format("2006-01-02")]++
}

type Summary struct {
	TotalMoves      int
	TotalGames      int
	AverageDuration float64
	EngineWinRate   float64
	Tiers           map[string]int
	Columns         map[int]int
	Winners         map[string]int
	GamesPerDay     map[string]int
}

func (m *Metrics) Summary(engineName string) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		TotalMoves:  m.totalMoves,
		TotalGames:  m.totalGames,
		Tiers:       copyMap(m.tierCounts),
		Columns:     copyMap(m.columnCounts),
		Winners:     copyMap(m.winnerCounts),
		GamesPerDay: copyMap(m.gamesPerDay),
	}
	if len(m.gameDurations) > 0 {
		sum := 0.0
		for _, d := range m.gameDurations {
			sum += d
		}
		s.AverageDuration = sum / float64(len(m.gameDurations))
	}
	if m.totalGames > 0 {
		s.EngineWinRate = float64(m.winnerCounts[engineName]) / float64(m.totalGames)
	}
	return s
}

func (s Summary) Log() {
	log.WithFields(log.Fields{
		"moves":        s.TotalMoves,
		"games":        s.TotalGames,
		"avg_duration": s.AverageDuration,
		"engine_wins":  s.EngineWinRate,
		"tiers":        s.Tiers,
		"columns":      s.Columns,
		"winners":      s.Winners,
		"per_day":      s.GamesPerDay,
	}).Info("analytics summary")
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
