package health

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

// PingCheck reports down when ping fails. *redis.Client.Ping and
// (*sql.DB).PingContext both fit.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// IndexCheck reports down once the index is closed and otherwise describes
// the latest commit.
func IndexCheck(idx *textindex.Index) Check {
	return func(ctx context.Context) ComponentHealth {
		if idx.Closed() {
			return ComponentHealth{Status: StatusDown, Message: "index closed"}
		}
		st := idx.Stats()
		return ComponentHealth{
			Status:  StatusUp,
			Message: fmt.Sprintf("opstamp %d, %d docs in %d segments", st.Opstamp, st.NumDocs, len(st.Segments)),
		}
	}
}
