package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CallRate returns a timeseries panel showing marketplace calls per second
// by endpoint.
func CallRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Call Rate").
		Description("Marketplace API calls per second by endpoint").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`marketapi:api_calls:rate5m`, "{{endpoint}}", "A")).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CallLatency returns a timeseries panel showing p50, p95 and p99
// marketplace call latencies.
func CallLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Call Latency").
		Description("Marketplace API call duration percentiles").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.50, sum(rate(marketapi_api_call_duration_seconds_bucket[5m])) by (le))`,
			"p50",
			"A",
		)).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(marketapi_api_call_duration_seconds_bucket[5m])) by (le))`,
			"p95",
			"B",
		)).
		WithTarget(PromQuery(
			`histogram_quantile(0.99, sum(rate(marketapi_api_call_duration_seconds_bucket[5m])) by (le))`,
			"p99",
			"C",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RejectionRate returns a timeseries panel showing the share of calls
// answered with a status other than 200 or 201.
func RejectionRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Rejected Calls %").
		Description("Calls answered with a status other than 200/201, as percentage of all calls").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(marketapi:api_rejections:rate5m) / sum(marketapi:api_calls:rate5m) * 100`,
			"rejected %", "A",
		)).
		Unit("percent").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(5, 10)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// TransportErrors returns a timeseries panel showing calls that failed
// before any response arrived.
func TransportErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Transport Errors").
		Description("Calls that failed before a response (DNS, TLS, timeouts) per second").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`marketapi:api_call_errors:rate5m`, "{{endpoint}}", "A")).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}
