// Package services – domain metrics
//
// This file exposes Prometheus instrumentation for the interaction engine
// and the chat thread manager. HTTP-level metrics (request counts, latency)
// live in the middleware package; the collectors here count business events
// so dashboards can track swipe volume, match rate, message throughput, and
// reply-generator health independently of transport concerns.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// interactionsTotal counts recorded interaction decisions by action.
	interactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_total",
			Help: "Total number of recorded interaction decisions.",
		},
		[]string{"action"},
	)

	// matchesFormed counts mutual matches created by the engine.
	matchesFormed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_formed_total",
			Help: "Total number of mutual matches formed.",
		},
	)

	// matchesBroken counts matches dissolved by a later reject.
	matchesBroken = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_broken_total",
			Help: "Total number of matches dissolved by a reject.",
		},
	)

	// messagesSent counts persisted messages by sender kind.
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of messages persisted.",
		},
		[]string{"sender_kind"},
	)

	// botReplies counts reply-generator invocations by outcome. A "failed"
	// outcome means the human message was stored but no bot reply appeared.
	botReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_replies_total",
			Help: "Total number of reply generator invocations by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(interactionsTotal, matchesFormed, matchesBroken, messagesSent, botReplies)
}
