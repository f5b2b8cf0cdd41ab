package whatsapp

import "testing"

func upsert(jid, pushName, conversation, extended string, fromMe bool) string {
	ev := `{"event":"messages.upsert","instance":"ayla","data":{` +
		`"key":{"remoteJid":"` + jid + `","fromMe":` + boolJSON(fromMe) + `},` +
		`"pushName":"` + pushName + `",` +
		`"message":{"conversation":"` + conversation + `",` +
		`"extendedTextMessage":{"text":"` + extended + `"}}}}`
	return ev
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want InboundMessage
		ok   bool
	}{
		{
			name: "plain conversation",
			raw:  upsert("5511999998888@s.whatsapp.net", "Maria", "quero um plano de treino", "", false),
			want: InboundMessage{Phone: "5511999998888", Name: "Maria", Text: "quero um plano de treino"},
			ok:   true,
		},
		{
			name: "extended text fallback",
			raw:  upsert("5511999998888@s.whatsapp.net", "Maria", "", "pode ser a primeira", false),
			want: InboundMessage{Phone: "5511999998888", Name: "Maria", Text: "pode ser a primeira"},
			ok:   true,
		},
		{
			name: "own outbound echo skipped",
			raw:  upsert("5511999998888@s.whatsapp.net", "Ayla", "segmento enviado", "", true),
			ok:   false,
		},
		{
			name: "group chat skipped",
			raw:  upsert("123456789@g.us", "Grupo", "bom dia pessoal", "", false),
			ok:   false,
		},
		{
			name: "empty text skipped",
			raw:  upsert("5511999998888@s.whatsapp.net", "Maria", "  ", "", false),
			ok:   false,
		},
		{
			name: "other event kind skipped",
			raw:  `{"event":"connection.update","data":{"state":"open"}}`,
			ok:   false,
		},
		{
			name: "garbage skipped",
			raw:  "not json",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseEvent([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ParseEvent() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://gateway:8080", "ws://gateway:8080/ayla"},
		{"https://gw.ayla.fit", "wss://gw.ayla.fit/ayla"},
	}
	for _, tt := range tests {
		l := NewListener(tt.base, "key", "ayla", nil, testLogger())
		got, err := l.socketURL()
		if err != nil {
			t.Fatalf("socketURL(%q) error: %v", tt.base, err)
		}
		if got != tt.want {
			t.Errorf("socketURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
