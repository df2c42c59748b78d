package rules

// AlertRules returns a PrometheusRule CR containing alert rules for the
// market client.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "marketapi-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "marketapi-alerts",
					Rules: []Rule{
						{
							Alert: "MarketapiHighRejectionRate",
							Expr:  `sum(marketapi:api_rejections:rate5m) / sum(marketapi:api_calls:rate5m) > 0.1`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Marketplace is rejecting calls",
								"description": "More than 10% of marketplace API calls returned a status other than 200/201 over the last 10 minutes.",
							},
						},
						{
							Alert: "MarketapiTransportErrors",
							Expr:  `sum(marketapi:api_call_errors:rate5m) > 0`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Marketplace API unreachable",
								"description": "Calls to the marketplace have been failing before a response for more than 5 minutes.",
							},
						},
						{
							Alert: "MarketapiTokenGrantFailures",
							Expr:  `sum(marketapi:token_grant_failures:rate5m) > 0`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "OAuth grants are failing",
								"description": "The token endpoint has been rejecting grants for more than 5 minutes. Check application credentials and seller refresh tokens.",
							},
						},
						{
							Alert: "MarketapiSlowCalls",
							Expr:  `histogram_quantile(0.95, sum(rate(marketapi_api_call_duration_seconds_bucket[5m])) by (le)) > 5`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Marketplace API is slow",
								"description": "p95 marketplace call latency has been above 5s for 10 minutes.",
							},
						},
						{
							Alert: "MarketapiQuotaHigh",
							Expr:  `marketapi_daily_usage > 4000`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Daily marketplace API usage is above 80% of the cap",
								"description": "Daily usage has exceeded 4000 calls (cap is 5000).",
							},
						},
						{
							Alert: "MarketapiDailyLimitReached",
							Expr:  `increase(marketapi_daily_limit_hits_total[5m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Daily marketplace API cap reached",
								"description": "Calls are being refused locally until the rolling window resets.",
							},
						},
					},
				},
			},
		},
	}
}
