// Package dynamo is a ledger.Backend on Amazon DynamoDB.
//
// One table holds every record under PK "LEDGER#<subject>", SK "RECORD" and the incident clock
// under PK "INCIDENT#latest", SK "CLOCK". Compare-and-swap uses conditional PutItem calls.
package dynamo
