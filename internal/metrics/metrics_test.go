package metrics

import (
	"reflect"
	"testing"

	"github.com/LJTian/TopicRadar/internal/models"
)

func TestToDateEncodings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-06-01T10:00:00Z", "2024-06-01"},
		{"2024-06-01", "2024-06-01"},
		{"20240601", "2024-06-01"},
		{"2024-06-01 10:00:00", "2024-06-01"},
		{"Sat, 01 Jun 2024 10:00:00 GMT", ""},
		{"notadate", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ToDate(c.in); got != c.want {
			t.Fatalf("ToDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTimeseriesBucketsAcrossEncodings(t *testing.T) {
	items := []models.Candidate{
		{PublishedAt: "2024-06-01T10:00:00Z"},
		{PublishedAt: "20240601"},
		{PublishedAt: "2024-06-01"},
		{PublishedAt: "2024-05-30"},
		{FetchTime: "2024-06-02T08:00:00"}, // publishedAt 缺失，回退 fetchTime
		{PublishedAt: "not parseable"},     // 不计入
	}

	b := Aggregate(items)
	want := []DayCount{
		{Date: "2024-05-30", Count: 1},
		{Date: "2024-06-01", Count: 3},
		{Date: "2024-06-02", Count: 1},
	}
	if !reflect.DeepEqual(b.TimeseriesDaily, want) {
		t.Fatalf("timeseries = %+v, want %+v", b.TimeseriesDaily, want)
	}
	if b.TimeseriesMaxCount != 3 {
		t.Fatalf("timeseries max = %d, want 3", b.TimeseriesMaxCount)
	}
}

func TestTimeseriesKeepsMostRecentFourteenDays(t *testing.T) {
	var items []models.Candidate
	for day := 1; day <= 20; day++ {
		items = append(items, models.Candidate{PublishedAt: dateOf(day)})
	}

	b := Aggregate(items)
	if len(b.TimeseriesDaily) != 14 {
		t.Fatalf("timeseries length = %d, want 14", len(b.TimeseriesDaily))
	}
	if b.TimeseriesDaily[0].Date != "2024-06-07" || b.TimeseriesDaily[13].Date != "2024-06-20" {
		t.Fatalf("timeseries window wrong: first=%s last=%s",
			b.TimeseriesDaily[0].Date, b.TimeseriesDaily[13].Date)
	}
}

func dateOf(day int) string {
	return "2024-06-" + twoDigits(day)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func TestHistogramNormalizationAndBins(t *testing.T) {
	bins := Histogram([]float64{0, 1, 4, 8})

	counts := make([]int, len(bins))
	for i, b := range bins {
		counts[i] = b.Count
	}
	// 归一化为 [0, 0.25, 1.0, 1.0] → 箱计数 {1,1,0,0,2}
	if !reflect.DeepEqual(counts, []int{1, 1, 0, 0, 2}) {
		t.Fatalf("bin counts = %v, want [1 1 0 0 2]", counts)
	}
	if bins[0].Range != "0.0-0.2" || bins[4].Range != "0.8-1.0" {
		t.Fatalf("bin ranges wrong: %+v", bins)
	}
}

func TestDomainCountsTopTenDescending(t *testing.T) {
	var items []models.Candidate
	for i := 0; i < 12; i++ {
		dom := "site" + twoDigits(i) + ".example.com"
		for j := 0; j <= i; j++ {
			items = append(items, models.Candidate{SourceDomain: dom})
		}
	}
	// 大小写归并
	items = append(items,
		models.Candidate{SourceDomain: "Mixed.Example.COM"},
		models.Candidate{SourceDomain: "mixed.example.com"},
	)

	b := Aggregate(items)
	if len(b.DomainCounts) != 10 {
		t.Fatalf("domain counts = %d, want top 10", len(b.DomainCounts))
	}
	if b.DomainCounts[0].Domain != "site11.example.com" || b.DomainCounts[0].Count != 12 {
		t.Fatalf("top domain wrong: %+v", b.DomainCounts[0])
	}
	for i := 1; i < len(b.DomainCounts); i++ {
		if b.DomainCounts[i].Count > b.DomainCounts[i-1].Count {
			t.Fatalf("domain counts not descending: %+v", b.DomainCounts)
		}
	}
	if b.DomainMaxCount != 12 {
		t.Fatalf("domain max = %d, want 12", b.DomainMaxCount)
	}
}

func TestRelevanceAvgAndSamples(t *testing.T) {
	items := []models.Candidate{
		{Relevance: &models.Relevance{Score: 2, Reason: "r1"}},
		{Relevance: &models.Relevance{Score: 4, Reason: "r2"}},
		{}, // 无相关性信息的素材不计入
	}

	b := Aggregate(items)
	if b.RelevanceAvg == nil || *b.RelevanceAvg != 3 {
		t.Fatalf("relevance avg = %v, want 3", b.RelevanceAvg)
	}
	if !reflect.DeepEqual(b.RelevanceSamples, []string{"r1", "r2"}) {
		t.Fatalf("samples = %v", b.RelevanceSamples)
	}

	empty := Aggregate(nil)
	if empty.RelevanceAvg != nil {
		t.Fatalf("empty set should have nil avg")
	}
}
