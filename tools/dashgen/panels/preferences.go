package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PreferencesCreated returns a stat panel showing preferences created in
// the last 24 hours.
func PreferencesCreated() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Preferences (24h)").
		Description("Checkout preferences created in the last 24 hours").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`increase(marketapi_preferences_submitted_total[24h])`, "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// SubmittedRate returns a timeseries panel showing preferences created per
// minute.
func SubmittedRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Preferences / min").
		Description("Rate of checkout preferences created per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`marketapi:preferences_submitted:rate5m * 60`, "preferences/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ItemsPerPreference returns a timeseries panel showing the median and p95
// item count of created preferences.
func ItemsPerPreference() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Items per Preference").
		Description("Item count of created preferences").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.50, sum(rate(marketapi_preference_items_bucket[1h])) by (le))`,
			"p50", "A",
		)).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(marketapi_preference_items_bucket[1h])) by (le))`,
			"p95", "B",
		)).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
