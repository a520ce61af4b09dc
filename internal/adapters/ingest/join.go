package ingest

import (
	"math"
	"sort"
	"time"

	"github.com/okian/mmx/internal/domain/series"
)

// join outer-joins the channel series (and the optional sales series) on
// their date axes. Dates present in any input appear in the result in
// ascending order; cells with no observation hold NaN rather than being
// dropped, so gaps stay visible until cleaning resolves them.
func join(channels []series.ChannelSeries, sales *series.ChannelSeries) series.Dataset {
	axis := make(map[time.Time]struct{})
	for _, cs := range channels {
		for _, p := range cs.Points {
			axis[p.Date] = struct{}{}
		}
	}
	if sales != nil {
		for _, p := range sales.Points {
			axis[p.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(axis))
	for d := range axis {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	fill := func(cs series.ChannelSeries) []float64 {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		for _, p := range cs.Points {
			col[index[p.Date]] = p.Value
		}
		return col
	}

	ds := series.Dataset{
		Dates: dates,
		Spend: make(map[string][]float64, len(channels)),
	}
	for _, cs := range channels {
		ds.Channels = append(ds.Channels, cs.Name)
		ds.Spend[cs.Name] = fill(cs)
	}
	if sales != nil {
		ds.Sales = fill(*sales)
	}
	ds.SortChannels()
	return ds
}
