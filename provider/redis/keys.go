package redis

import "fmt"

// domainsKey returns the key for the set of known domain names
func domainsKey(keyPrefix string) string {
	return keyPrefix + "domains"
}

func typeSegment(name, version string) string {
	return fmt.Sprintf("%v/%v", name, version)
}

// workflowTypesKey returns the key for the hash holding a domain's workflow
// types, keyed by name/version
func workflowTypesKey(keyPrefix, domain string) string {
	return fmt.Sprintf("%vworkflow-types:%v", keyPrefix, domain)
}

func executionSegment(workflowID, runID string) string {
	return fmt.Sprintf("%v/%v", workflowID, runID)
}

// executionsKey returns the key for the hash holding a domain's workflow
// executions, keyed by workflow-id/run-id
func executionsKey(keyPrefix, domain string) string {
	return fmt.Sprintf("%vworkflow-executions:%v", keyPrefix, domain)
}

// openExecutionsKey returns the key for the hash mapping a domain's open
// workflow ids to their current run id
func openExecutionsKey(keyPrefix, domain string) string {
	return fmt.Sprintf("%vopen-workflow-executions:%v", keyPrefix, domain)
}

// historyKey returns the key for the stream holding an execution's history
// events
func historyKey(keyPrefix, domain, workflowID, runID string) string {
	return fmt.Sprintf("%vhistory:%v:%v:%v", keyPrefix, domain, workflowID, runID)
}

// historyID returns the stream entry id for an event id
func historyID(eventID int64) string {
	return fmt.Sprintf("%v-0", eventID)
}
