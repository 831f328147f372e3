package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sebas5384/now-builders/internal/metrics"
)

func TestBuildMetrics(t *testing.T) {
	count := testutil.ToFloat64(metrics.BuildCount)
	failed := testutil.ToFloat64(metrics.BuildFailed.WithLabelValues("frontend/package.json", "NoPagesBuilt"))

	metrics.BuildSucceeded("frontend/package.json", time.Now().Add(-time.Second))
	metrics.BuildFailure("frontend/package.json", "NoPagesBuilt")

	if exp, act := count+2, testutil.ToFloat64(metrics.BuildCount); exp != act {
		t.Errorf("expected build count %v, got %v", exp, act)
	}
	if exp, act := failed+1, testutil.ToFloat64(metrics.BuildFailed.WithLabelValues("frontend/package.json", "NoPagesBuilt")); exp != act {
		t.Errorf("expected failure count %v, got %v", exp, act)
	}
	if n := testutil.CollectAndCount(metrics.BuildDuration); n == 0 {
		t.Error("expected a duration observation")
	}
}

func TestLambdaPackaged(t *testing.T) {
	count := testutil.ToFloat64(metrics.LambdaPackagedCount)

	metrics.LambdaPackaged(1024)

	if exp, act := count+1, testutil.ToFloat64(metrics.LambdaPackagedCount); exp != act {
		t.Errorf("expected packaged count %v, got %v", exp, act)
	}
}
