package bot

const (
	welcomeText = "👋 Olá! Eu sou o Sophos. Pronto pra te ouvir e evoluir contigo 🧠"

	commandsText = "📌 *Comandos disponíveis:*\n" +
		"/start - iniciar conversa\n" +
		"/perfil - ver perfil\n" +
		"/resumo - resumo emocional\n" +
		"/consultar <tema> - histórico por tema\n" +
		"/resumir <texto> - gerar resumo\n" +
		"/conselheiro - conselho emocional\n" +
		"/exportar - backup (JSON/TXT/XLSX)\n" +
		"/comandos - mostrar este menu"

	feedbackRecorded  = "✅ Feedback registrado. Obrigado!"
	feedbackMalformed = "⚠️ Feedback mal formatado."

	noEmotions       = "Nenhuma emoção registrada."
	consultUsage     = "Ex: /consultar treino"
	summarizeUsage   = "Ex: /resumir <texto>"
	notEnoughCounsel = "Poucos dados pra gerar conselho."
	nothingToExport  = "⚠️ Nenhum dado encontrado."
	unknownCommand   = "Comando desconhecido. Use /comandos para ver as opções."
	commandFailed    = "Desculpe, não consegui fazer isso agora. Tente novamente em instantes."
	voiceUnavailable = "Mensagens de voz não estão disponíveis no momento."
	voiceFailed      = "Não consegui entender o áudio. Pode repetir ou escrever?"
)
