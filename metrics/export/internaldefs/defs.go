package internaldefs

import (
	linking "github.com/Kramarich000/sharkflow-linking"
)

// CounterDef binds a core MetricID to its exported name and help text.
// Shared by the Prometheus and OTel exporters so both expose the same
// series.
type CounterDef struct {
	ID   linking.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: linking.MetricIssueSuccess, Name: "linking_code_issued_total", Help: "Issued confirmation codes."},
	{ID: linking.MetricIssueFailure, Name: "linking_code_issue_failure_total", Help: "Failed confirmation code issuance attempts."},
	{ID: linking.MetricConsumeSuccess, Name: "linking_code_consumed_total", Help: "Successfully redeemed confirmation codes."},
	{ID: linking.MetricConsumeNotFound, Name: "linking_code_not_found_total", Help: "Redemption attempts against absent or expired records."},
	{ID: linking.MetricConsumeMismatch, Name: "linking_code_mismatch_total", Help: "Redemption attempts with a wrong code."},
	{ID: linking.MetricStoreUnavailable, Name: "linking_store_unavailable_total", Help: "Record store timeouts and outages."},
	{ID: linking.MetricProviderConnected, Name: "linking_provider_connected_total", Help: "Confirmed provider bindings."},
	{ID: linking.MetricProviderConflict, Name: "linking_provider_conflict_total", Help: "Binding upserts rejected because the identity was bound elsewhere."},
	{ID: linking.MetricProviderDisabled, Name: "linking_provider_disabled_total", Help: "Confirmed provider unlinks."},
	{ID: linking.MetricTOTPEnabled, Name: "linking_totp_enabled_total", Help: "Activated second factors."},
	{ID: linking.MetricTOTPDisabled, Name: "linking_totp_disabled_total", Help: "Deactivated second factors."},
	{ID: linking.MetricAccountRestored, Name: "linking_account_restored_total", Help: "Confirmed account restores."},
	{ID: linking.MetricDeliveryFailure, Name: "linking_delivery_failure_total", Help: "Out-of-band code delivery failures."},
}
