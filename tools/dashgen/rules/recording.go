package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "marketapi-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "marketapi-recording",
					Rules: []Rule{
						{
							Record: "marketapi:api_calls:rate5m",
							Expr:   `sum(rate(marketapi_api_calls_total[5m])) by (endpoint)`,
						},
						{
							Record: "marketapi:api_rejections:rate5m",
							Expr:   `sum(rate(marketapi_api_calls_total{status!~"200|201"}[5m])) by (endpoint)`,
						},
						{
							Record: "marketapi:api_call_errors:rate5m",
							Expr:   `sum(rate(marketapi_api_call_errors_total[5m])) by (endpoint)`,
						},
						{
							Record: "marketapi:token_grant_failures:rate5m",
							Expr:   `sum(rate(marketapi_token_grants_total{outcome="error"}[5m])) by (grant_type)`,
						},
						{
							Record: "marketapi:preferences_submitted:rate5m",
							Expr:   `rate(marketapi_preferences_submitted_total[5m])`,
						},
					},
				},
			},
		},
	}
}
