package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	authorizationDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_authorization_decisions_total",
		Help: "Authorization decisions by outcome code (allowed or the failing gate)",
	}, []string{"outcome"})
	commandsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_commands_executed_total",
		Help: "Commands run by the executor by kind and result code",
	}, []string{"kind", "result"})
	autoModTriggers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_automod_triggers_total",
		Help: "Automatic actions fired by warning thresholds",
	}, []string{"action", "success"})
	vaultDecryptFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_vault_decrypt_failures_total",
		Help: "Stored secrets that failed to decrypt and were purged",
	})
	vaultMigrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_vault_migrations_total",
		Help: "Legacy plaintext secrets re-encrypted by the vault",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(authorizationDecisions, commandsExecuted, autoModTriggers, vaultDecryptFailures, vaultMigrations)
}

// ObserveDecision counts an authorization outcome.
func ObserveDecision(outcome string) { authorizationDecisions.WithLabelValues(outcome).Inc() }

// ObserveCommand counts an executed command.
func ObserveCommand(kind, result string) { commandsExecuted.WithLabelValues(kind, result).Inc() }

// ObserveAutoMod counts an automatic action.
func ObserveAutoMod(action string, success bool) {
	autoModTriggers.WithLabelValues(action, strconv.FormatBool(success)).Inc()
}

// IncVaultDecryptFailure increments the purged-secret counter.
func IncVaultDecryptFailure() { vaultDecryptFailures.Inc() }

// IncVaultMigration increments the migrated-secret counter.
func IncVaultMigration() { vaultMigrations.Inc() }
