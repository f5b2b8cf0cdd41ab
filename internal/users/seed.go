package users

import "encoding/json"

type seedQuestion struct {
	id          string
	step        int
	title       string
	subtitle    string
	qtype       string
	field       string
	options     []string
	emoji       string
	placeholder string
}

// defaultQuestions is the shipped onboarding questionnaire. Operators
// can edit or extend it directly in the database; the seed only runs
// when the table is empty.
var defaultQuestions = []seedQuestion{
	{
		id: "q-name", step: 1, title: "Qual é o seu nome?",
		qtype: "text", field: "name", emoji: "👋",
		placeholder: "Seu nome completo",
	},
	{
		id: "q-age", step: 2, title: "Quantos anos você tem?",
		qtype: "text", field: "age", emoji: "🎂",
		placeholder: "Sua idade",
	},
	{
		id: "q-email", step: 3, title: "Qual é o seu email?",
		subtitle: "Usamos para criar sua conta no app",
		qtype:    "text", field: "email", emoji: "📧",
		placeholder: "seu@email.com",
	},
	{
		id: "q-goal", step: 4, title: "Qual é o seu principal objetivo?",
		qtype: "choice", field: "main_goal", emoji: "🎯",
		options: []string{
			"Perder peso", "Ganhar massa muscular",
			"Melhorar condicionamento", "Manter a saúde",
		},
	},
	{
		id: "q-activity", step: 5, title: "Qual o seu nível de atividade física atual?",
		qtype: "choice", field: "activity_level", emoji: "🏃",
		options: []string{
			"Sedentário", "Leve (1-2x por semana)",
			"Moderado (3-4x por semana)", "Intenso (5x ou mais)",
		},
	},
	{
		id: "q-restrictions", step: 6, title: "Você tem alguma restrição alimentar?",
		subtitle: "Alergias, intolerâncias ou dietas específicas",
		qtype:    "text", field: "dietary_restrictions", emoji: "🥗",
		placeholder: "Ex: intolerância a lactose, vegetariano",
	},
	{
		id: "q-injuries", step: 7, title: "Você tem alguma lesão ou limitação física?",
		qtype: "text", field: "injuries", emoji: "🩹",
		placeholder: "Ex: dor no joelho, nenhuma",
	},
}

func (s *Store) seedQuestions() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM onboarding_questions`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, q := range defaultQuestions {
		var options string
		if len(q.options) > 0 {
			data, _ := json.Marshal(q.options)
			options = string(data)
		}
		_, err := s.db.Exec(`
			INSERT INTO onboarding_questions
				(id, step_number, title, subtitle, question_type, field_name,
				 required, options, emoji, placeholder, active)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, 1)
		`, q.id, q.step, q.title, q.subtitle, q.qtype, q.field, options, q.emoji, q.placeholder)
		if err != nil {
			return err
		}
	}
	return nil
}
