package loadtest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Generate returns the submissions of a run: cfg.Requests distinct
// requests with random weight and budget overrides, plus resent ids at
// cfg.DuplicateRate. Output depends only on cfg.Seed.
func Generate(cfg Config) []Request {
	r := rand.New(rand.NewPCG(cfg.Seed, 0x5eed))
	space := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "squad-loadtest-%d", cfg.Seed))

	out := make([]Request, 0, cfg.Requests+int(float64(cfg.Requests)*cfg.DuplicateRate)+1)
	for i := 0; i < cfg.Requests; i++ {
		req := Request{ID: uuid.NewSHA1(space, fmt.Appendf(nil, "%d", i)).String()}
		// Half of the requests keep the preset weights.
		if r.IntN(2) == 0 {
			alpha := round(r.Float64())
			beta := round(r.Float64() * (1 - alpha))
			req.Alpha, req.Beta = &alpha, &beta
		}
		if cfg.MaxBudget > 0 {
			b := round(cfg.MinBudget + r.Float64()*(cfg.MaxBudget-cfg.MinBudget))
			if b > 0 {
				req.Budget = &b
			}
		}
		out = append(out, req)
		if len(out) > 1 && r.Float64() < cfg.DuplicateRate {
			out = append(out, out[r.IntN(len(out)-1)])
		}
	}
	return out
}

func round(f float64) float64 { return math.Floor(f*1000) / 1000 }
