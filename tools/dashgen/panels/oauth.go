package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// GrantRate returns a timeseries panel showing OAuth grants per minute by
// grant type and outcome.
func GrantRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Token Grants / min").
		Description("OAuth grants by grant type and outcome").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(FullWidth).
		WithTarget(PromQuery(
			`sum(rate(marketapi_token_grants_total[5m])) by (grant_type, outcome) * 60`,
			"{{grant_type}} {{outcome}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// GrantFailures returns a stat panel showing failed grants over the last
// 24 hours.
func GrantFailures() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Failed Grants (24h)").
		Description("OAuth grants rejected by the token endpoint in the last 24 hours").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`sum(increase(marketapi_token_grants_total{outcome="error"}[24h]))`,
			"", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
