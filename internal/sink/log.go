package sink

import (
	"go.uber.org/zap"

	"github.com/actionsum/sac/pkg/activity"
)

// Log returns a callback that logs every label at info level.
func Log(logger *zap.Logger) activity.Callback {
	return func(label string) {
		logger.Info("activity", zap.String("label", label))
	}
}
