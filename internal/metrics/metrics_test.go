package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDocumentLookupSplitsHitsAndMisses(t *testing.T) {
	hits := testutil.ToFloat64(documentCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(documentCacheLookups.WithLabelValues("miss"))

	RecordDocumentLookup(true)
	RecordDocumentLookup(false)
	RecordDocumentLookup(false)

	if got := testutil.ToFloat64(documentCacheLookups.WithLabelValues("hit")) - hits; got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(documentCacheLookups.WithLabelValues("miss")) - misses; got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
}

func TestRecordThumbnailTier(t *testing.T) {
	before := testutil.ToFloat64(thumbnailTiers.WithLabelValues("synthetic"))
	RecordThumbnailTier("synthetic")
	if got := testutil.ToFloat64(thumbnailTiers.WithLabelValues("synthetic")) - before; got != 1 {
		t.Fatalf("expected synthetic counter to increase by 1, got %v", got)
	}
}

func TestGaugesReflectLatestValue(t *testing.T) {
	SetGuardsOutstanding(3)
	if got := testutil.ToFloat64(accessGuardsOutstanding); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}
	SetThumbnailCacheSize(7)
	if got := testutil.ToFloat64(thumbnailCacheSize); got != 7 {
		t.Fatalf("expected gauge 7, got %v", got)
	}
	RecordDocumentLoad("ok", 10*time.Millisecond)
}
