package services

import (
	"strings"

	"crm-messaging-server/internal/models"
)

// tripleKey is the normalized (status, cause, errCode) lookup key.
// Status and cause are uppercased; the error code is kept as a lowercase
// token since the vendor zero-pads codes and mixes hex-like digits ("00a").
type tripleKey struct {
	status string
	cause  string
	code   string
}

// deliveryRows is the vendor's published status mapping, kept literal.
// Several statuses share a cause/code row, so rows enumerate their family.
var deliveryRows = []struct {
	statuses []string
	cause    string
	code     string
	result   models.MessageStatus
}{
	{[]string{"DELIVERED", "SUCCESS"}, "SUCCESS", "000", models.StatusDelivered},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "ABSENT_SUBSCRIBER", "001", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "CALL_BARRED", "002", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "UNKNOWN_SUBSCRIBER", "003", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "SERVICE_DOWN", "004", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "SYSTEM_FAILURE", "005", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "DND_FAIL", "006", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "BLOCKED", "007", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "DND_TIMEOUT", "008", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "OUTSIDE_WORKING_HOURS", "009", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "OTHER", "00a", models.StatusFailed},
	{[]string{"FAILED", "FAILURE", "UNDELIV"}, "BLOCKED_MASK", "00b", models.StatusFailed},
	{[]string{"EXPIRED"}, "SMSCTIMEDOUT", "00c", models.StatusFailed},
	{[]string{"FAILED"}, "CANCEL_CAUSEID", "00d", models.StatusFailed},
	{[]string{"FAILED"}, "CANCEL_SCHEDULE", "00e", models.StatusFailed},
	{[]string{"FAILED"}, "DEFERRED", "010", models.StatusFailed},
	{[]string{"UNDELIV"}, "INBOXFULL", "011", models.StatusFailed},
	{[]string{"UNDELIV"}, "CONGESTION", "012", models.StatusFailed},
	{[]string{"EXPIRED"}, "NO_ACK_FROM_OPERATOR", "013", models.StatusFailed},
	{[]string{"FAILED"}, "MSG_DOES_NOT_MATCH_TEMPLATE", "038", models.StatusFailed},
}

var deliveryTable = buildDeliveryTable()

func buildDeliveryTable() map[tripleKey]models.MessageStatus {
	table := make(map[tripleKey]models.MessageStatus)
	for _, row := range deliveryRows {
		for _, status := range row.statuses {
			table[tripleKey{status, row.cause, row.code}] = row.result
		}
	}
	return table
}

// NormalizeStatus maps a vendor (status, cause, errCode) triple to the
// internal delivery state. It is a total function: unknown triples resolve
// to failed rather than an error, since absence of evidence of delivery is
// treated as non-delivery. Status and cause are case-insensitive.
//
// Precedence: exact triple, then status family, then the fail-closed default.
// The result is never sent or read.
func NormalizeStatus(status, cause, errCode string) models.MessageStatus {
	s := strings.ToUpper(strings.TrimSpace(status))
	c := strings.ToUpper(strings.TrimSpace(cause))
	code := strings.ToLower(strings.TrimSpace(errCode))

	if result, ok := deliveryTable[tripleKey{s, c, code}]; ok {
		return result
	}

	switch s {
	case "DELIVERED", "SUCCESS":
		return models.StatusDelivered
	case "FAILED", "FAILURE", "UNDELIV", "EXPIRED":
		// Some vendors resend the success marker under a stale status.
		if c == "SUCCESS" && code == "000" {
			return models.StatusDelivered
		}
		return models.StatusFailed
	}

	return models.StatusFailed
}
