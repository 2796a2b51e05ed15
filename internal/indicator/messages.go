package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeSpanish locale = "es"
)

type messages struct {
	recording    string
	recordingKey string
	listening    string
	processing   string
	signalHint   string
	timeoutHint  string
	silenceHint  string
}

func messagesFromEnv() messages {
	lang := os.Getenv("LC_MESSAGES")
	if strings.TrimSpace(lang) == "" {
		lang = os.Getenv("LANG")
	}
	return localeMessages(resolveLocale(lang))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "es") {
		return localeSpanish
	}
	return localeEnglish
}

func localeMessages(tag locale) messages {
	switch tag {
	case localeSpanish:
		return messages{
			recording:    "Grabando...",
			recordingKey: "Grabando... Pulsa ESPACIO para detener",
			listening:    "Escuchando",
			processing:   "Procesando...",
			signalHint:   "  (o envía SIGUSR1: kill -SIGUSR1 %d, o ejecuta: listen stop)",
			timeoutHint:  "  (parada automática a los %.1fs)",
			silenceHint:  "  (parada automática tras %.1fs de silencio)",
		}
	default:
		return messages{
			recording:    "Recording...",
			recordingKey: "Recording... Press SPACE to stop",
			listening:    "Listening",
			processing:   "Processing...",
			signalHint:   "  (or send SIGUSR1: kill -SIGUSR1 %d, or run: listen stop)",
			timeoutHint:  "  (auto-stop after %.1fs)",
			silenceHint:  "  (auto-stop after %.1fs of silence)",
		}
	}
}
