// Package callstore tracks in-flight call sessions between the webhook
// pushes that update them and the client polls that read them. Summaries
// are read-once; sessions expire after a TTL without updates.
package callstore
