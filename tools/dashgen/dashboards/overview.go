// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/marketapi/tools/dashgen/panels"
)

// BuildOverview constructs the marketapi overview dashboard.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Market Client Overview").
		Uid("marketapi-overview").
		Tags([]string{"marketapi", "mercadopago"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.PreferencesCreated()).
		WithPanel(panels.GrantFailures()).
		WithPanel(panels.QuotaGauge()).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("API Calls").
		WithPanel(panels.CallRate()).
		WithPanel(panels.CallLatency()).
		WithPanel(panels.RejectionRate()).
		WithPanel(panels.TransportErrors()))

	b.WithRow(dashboard.NewRowBuilder("OAuth").
		WithPanel(panels.GrantRate()))

	b.WithRow(dashboard.NewRowBuilder("Preferences").
		WithPanel(panels.SubmittedRate()).
		WithPanel(panels.ItemsPerPreference()))

	b.WithRow(dashboard.NewRowBuilder("Daily Quota").
		WithPanel(panels.DailyUsage()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
