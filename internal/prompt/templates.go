package prompt

import "text/template"

// Persona is the fixed style preamble sent with every generation.
const Persona = "Você é um assistente direto, sagaz, firme, com humor rápido e visão tradicional. " +
	"Fale como alguém prático e que valoriza o essencial. Evite enrolação."

const (
	ConciseDirective  = "Seja mais conciso e direto nas respostas."
	DidacticDirective = "Explique com mais detalhes e de forma didática, com exemplos quando ajudar."
)

// Apology replaces a reply when generation fails.
const Apology = "Desculpe, não consegui responder agora. Tente novamente em instantes."

const (
	summaryInstruction = "Você condensa conversas antigas em um resumo curto, em terceira pessoa, " +
		"preservando fatos pessoais, decisões e o tom emocional."
	summaryRequestPrefix = "Resuma brevemente o seguinte histórico de conversas:\n\n"

	factInstruction = "Extraia da mensagem do usuário apenas fatos úteis para lembrar no futuro " +
		"(nomes, datas, preferências, relações, objetivos). Responda somente com um objeto JSON plano " +
		"de chave para valor, ambos texto, chaves curtas em snake_case. Se não houver fatos, responda {}."

	textSummaryPrefix = "Resuma de forma prática:\n\n"
)

const turnTemplateText = `{{.Context}}
{{- if .Facts}}

Lembrar:
{{- range .Facts}}
- {{.Key}}: {{.Value}}
{{- end}}
{{- end}}
{{- if .Profile}}

Perfil: {{.Profile}}
{{- end}}
{{- if .Retrieved}}

Memórias relacionadas:
{{- range .Retrieved}}
- {{.}}
{{- end}}
{{- end}}

Usuário disse:
{{.UserMessage}}`

const counselTemplateText = `Com base nas emoções recentes:
{{- range .}}
- {{.Timestamp.Format "2006-01-02"}}: {{.Emotion}}
{{- end}}
Me dê um conselho baseado nisso.`

var (
	turnTemplate    = template.Must(template.New("turn").Parse(turnTemplateText))
	counselTemplate = template.Must(template.New("counsel").Parse(counselTemplateText))
)
