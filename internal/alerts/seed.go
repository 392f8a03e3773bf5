package alerts

import (
	"encoding/json"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	dbtypes "github.com/bomjesus/armazem-backend/pkg/db/types"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// Rule keys known to the evaluators.
const (
	RuleEstoqueMadura       = "estoque_madura"
	RulePerdasDia           = "perdas_dia"
	RuleDevolucoesCliente7d = "devolucoes_cliente_7d"
	RuleRawPendingBacklog   = "raw_pending_backlog"
)

func strPtr(s string) *string { return &s }

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// defaultRules are created once on startup; operators tune them afterwards
// through the rule admin endpoints.
func defaultRules() []models.AlertRule {
	allChannels := dbtypes.StringArray{string(enums.AlertChannelPush), string(enums.AlertChannelEmail)}

	return []models.AlertRule{
		{
			RuleKey:     RuleEstoqueMadura,
			Name:        "Estoque madura acumulado",
			Description: strPtr("Caixas em estado MADURA acumuladas por produto"),
			Enabled:     true,
			Severity:    enums.AlertSeverityWarning,
			Params: mustJSON(map[string]any{
				"warningBoxes":  20,
				"criticalBoxes": 50,
			}),
			Channels:        allChannels,
			CooldownMinutes: 120,
		},
		{
			RuleKey:     RulePerdasDia,
			Name:        "Perdas do dia acima do padrao",
			Description: strPtr("Perdas de hoje acima da media movel mais dois desvios"),
			Enabled:     true,
			Severity:    enums.AlertSeverityWarning,
			Params: mustJSON(map[string]any{
				"windowDays":  7,
				"minDays":     3,
				"stdevFactor": 2,
			}),
			Channels:        allChannels,
			CooldownMinutes: 120,
		},
		{
			RuleKey:     RuleDevolucoesCliente7d,
			Name:        "Devolucoes por cliente em alta",
			Description: strPtr("Devolucoes dos ultimos 7 dias acima de 1.5x a media semanal do cliente"),
			Enabled:     true,
			Severity:    enums.AlertSeverityWarning,
			Params: mustJSON(map[string]any{
				"factor": 1.5,
			}),
			Channels:        allChannels,
			CooldownMinutes: 120,
		},
		{
			RuleKey:     RuleRawPendingBacklog,
			Name:        "Fila de eventos RAW represada",
			Description: strPtr("Eventos pendentes em excesso ou parados ha muito tempo"),
			Enabled:     true,
			Severity:    enums.AlertSeverityCritical,
			Params: mustJSON(map[string]any{
				"maxPending":       50,
				"maxOldestMinutes": 30,
			}),
			Channels:        allChannels,
			CooldownMinutes: 60,
		},
	}
}
