package plans

// The shipped catalog. Small on purpose: enough for the suggestion and
// plan-creation tools to return real rows on a fresh database. The seed
// only runs when the foods table is empty, so operator-managed catalogs
// are never touched.

type seedFood struct {
	id, name, category            string
	calories, protein, carbs, fat float64
}

var seedFoods = []seedFood{
	{"f-frango", "Peito de Frango", "proteína", 165, 31, 0, 3.6},
	{"f-tilapia", "Filé de Tilápia", "proteína", 96, 20, 0, 1.7},
	{"f-salmao", "Salmão", "proteína", 208, 20, 0, 13},
	{"f-ovo", "Ovo", "proteína", 155, 13, 1.1, 11},
	{"f-iogurte", "Iogurte Natural", "laticínio", 61, 3.5, 4.7, 3.3},
	{"f-arroz", "Arroz Integral", "carboidrato", 111, 2.6, 23, 0.9},
	{"f-quinoa", "Quinoa", "carboidrato", 120, 4.4, 21, 1.9},
	{"f-aveia", "Aveia", "carboidrato", 389, 17, 66, 6.9},
	{"f-tapioca", "Goma de Tapioca", "carboidrato", 240, 0, 60, 0},
	{"f-batata-doce", "Batata Doce", "carboidrato", 86, 1.6, 20, 0.1},
	{"f-banana", "Banana", "fruta", 89, 1.1, 23, 0.3},
	{"f-morango", "Morango", "fruta", 32, 0.7, 7.7, 0.3},
	{"f-brocolis", "Brócolis", "vegetal", 34, 2.8, 7, 0.4},
	{"f-alface", "Alface", "vegetal", 15, 1.4, 2.9, 0.2},
	{"f-tomate", "Tomate", "vegetal", 18, 0.9, 3.9, 0.2},
	{"f-castanhas", "Mix de Castanhas", "oleaginosa", 607, 20, 21, 54},
	{"f-amendoim", "Pasta de Amendoim", "oleaginosa", 588, 25, 20, 50},
	{"f-azeite", "Azeite de Oliva", "gordura", 884, 0, 0, 100},
	{"f-leite", "Leite Desnatado", "laticínio", 35, 3.4, 5, 0.1},
	{"f-whey", "Whey Protein", "suplemento", 400, 80, 10, 5},
}

type seedRecipe struct {
	id, name, description string
	ingredients           map[string]float64 // food id -> grams
}

var seedRecipes = []seedRecipe{
	{
		"r-omelete", "Omelete de Ovos com Tomate",
		"Omelete simples com tomate picado, rápida e rica em proteína",
		map[string]float64{"f-ovo": 150, "f-tomate": 50, "f-azeite": 5},
	},
	{
		"r-vitamina", "Vitamina de Banana com Aveia",
		"Vitamina cremosa de banana, aveia e leite",
		map[string]float64{"f-banana": 100, "f-aveia": 30, "f-leite": 200},
	},
	{
		"r-panqueca", "Panqueca de Aveia com Morango",
		"Panqueca fit de aveia servida com morangos",
		map[string]float64{"f-aveia": 50, "f-ovo": 50, "f-morango": 80},
	},
	{
		"r-tapioca", "Tapioca com Frango Desfiado",
		"Tapioca recheada com frango desfiado",
		map[string]float64{"f-tapioca": 60, "f-frango": 80},
	},
	{
		"r-smoothie", "Smoothie de Morango com Whey",
		"Smoothie gelado de morango com whey protein",
		map[string]float64{"f-morango": 120, "f-whey": 30, "f-leite": 200},
	},
	{
		"r-frango-quinoa", "Frango Grelhado com Quinoa",
		"Peito de frango grelhado com quinoa e brócolis no vapor",
		map[string]float64{"f-frango": 150, "f-quinoa": 80, "f-brocolis": 100},
	},
	{
		"r-tilapia", "Tilápia Assada com Batata Doce",
		"Filé de tilápia assado com batata doce e salada",
		map[string]float64{"f-tilapia": 150, "f-batata-doce": 150, "f-alface": 50},
	},
	{
		"r-salmao", "Salmão com Legumes",
		"Salmão grelhado com brócolis e tomate",
		map[string]float64{"f-salmao": 150, "f-brocolis": 100, "f-tomate": 80},
	},
	{
		"r-salada-frango", "Salada de Frango com Arroz Integral",
		"Salada completa com frango, arroz integral e folhas",
		map[string]float64{"f-frango": 120, "f-arroz": 100, "f-alface": 60, "f-tomate": 50},
	},
	{
		"r-wrap", "Wrap de Frango",
		"Wrap leve de frango com salada",
		map[string]float64{"f-frango": 100, "f-alface": 40, "f-tomate": 40},
	},
	{
		"r-iogurte", "Iogurte com Mix de Castanhas",
		"Iogurte natural com castanhas e banana",
		map[string]float64{"f-iogurte": 170, "f-castanhas": 30, "f-banana": 50},
	},
	{
		"r-banana-pasta", "Banana com Pasta de Amendoim",
		"Lanche rápido de banana com pasta de amendoim",
		map[string]float64{"f-banana": 100, "f-amendoim": 20},
	},
}

type seedExercise struct {
	id, name, description, primary, secondary, equipment, difficulty, instructions string
}

var seedExercises = []seedExercise{
	{"e-supino", "Supino Reto", "Empurrada horizontal com barra", "peito", "tríceps", "barra", "intermediário",
		"Deite no banco, pés firmes no chão, desça a barra até o peito e empurre controlando o movimento."},
	{"e-flexao", "Flexão de Braço", "Empurrada com peso corporal", "peito", "tríceps", "nenhum", "iniciante",
		"Corpo alinhado, desça até o peito quase tocar o chão e suba sem travar os cotovelos."},
	{"e-crucifixo", "Crucifixo com Halteres", "Isolamento de peitoral", "peito", "ombros", "halteres", "iniciante",
		"Abra os braços em arco com leve flexão de cotovelo e retorne à posição inicial."},
	{"e-remada", "Remada Curvada", "Puxada horizontal com barra", "costas", "bíceps", "barra", "intermediário",
		"Tronco inclinado, puxe a barra em direção ao abdômen mantendo a coluna neutra."},
	{"e-pulldown", "Puxada na Frente", "Puxada vertical na polia", "costas", "bíceps", "polia", "iniciante",
		"Puxe a barra até a altura do queixo controlando a subida."},
	{"e-barra-fixa", "Barra Fixa", "Puxada vertical com peso corporal", "costas", "bíceps", "barra fixa", "avançado",
		"Pegada pronada, suba até o queixo passar a barra e desça com controle."},
	{"e-agachamento", "Agachamento Livre", "Agachamento com barra", "pernas", "glúteos", "barra", "intermediário",
		"Pés na largura dos ombros, desça até as coxas ficarem paralelas ao chão e suba."},
	{"e-leg-press", "Leg Press", "Empurrada de pernas na máquina", "pernas", "glúteos", "máquina", "iniciante",
		"Desça a plataforma até 90 graus de joelho e empurre sem travar os joelhos."},
	{"e-afundo", "Afundo", "Passada unilateral", "pernas", "glúteos", "halteres", "iniciante",
		"Dê um passo à frente e desça o joelho de trás em direção ao chão."},
	{"e-stiff", "Stiff", "Dobradiça de quadril", "posterior", "glúteos", "barra", "intermediário",
		"Desça a barra rente às pernas mantendo os joelhos semiflexionados."},
	{"e-desenvolvimento", "Desenvolvimento com Halteres", "Empurrada vertical", "ombros", "tríceps", "halteres", "intermediário",
		"Empurre os halteres acima da cabeça sem arquear a lombar."},
	{"e-elevacao", "Elevação Lateral", "Isolamento de deltoide", "ombros", "", "halteres", "iniciante",
		"Eleve os halteres até a linha dos ombros com cotovelos levemente flexionados."},
	{"e-rosca", "Rosca Direta", "Flexão de cotovelo", "bíceps", "", "barra", "iniciante",
		"Flexione os cotovelos sem balançar o tronco."},
	{"e-triceps-corda", "Tríceps na Corda", "Extensão de cotovelo na polia", "tríceps", "", "polia", "iniciante",
		"Estenda os cotovelos afastando a corda no final do movimento."},
	{"e-prancha", "Prancha", "Isometria de core", "abdômen", "", "nenhum", "iniciante",
		"Mantenha o corpo alinhado apoiado nos antebraços e pontas dos pés."},
	{"e-abdominal", "Abdominal Supra", "Flexão de tronco", "abdômen", "", "nenhum", "iniciante",
		"Suba o tronco contraindo o abdômen, sem puxar o pescoço."},
}

func (s *Store) seed() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, f := range seedFoods {
		if _, err := s.db.Exec(`
			INSERT INTO foods (id, name, category, calories_per_100g, protein_g, carbs_g, fat_g)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.id, f.name, f.category, f.calories, f.protein, f.carbs, f.fat); err != nil {
			return err
		}
	}
	for _, r := range seedRecipes {
		if _, err := s.db.Exec(`
			INSERT INTO recipes (id, name, description) VALUES (?, ?, ?)
		`, r.id, r.name, r.description); err != nil {
			return err
		}
		for foodID, grams := range r.ingredients {
			if _, err := s.db.Exec(`
				INSERT INTO recipe_ingredients (recipe_id, food_id, quantity_grams, display_unit)
				VALUES (?, ?, ?, 'g')
			`, r.id, foodID, grams); err != nil {
				return err
			}
		}
	}
	for _, e := range seedExercises {
		if _, err := s.db.Exec(`
			INSERT INTO exercises
				(id, name, description, primary_muscle_group, secondary_muscle_group,
				 equipment_needed, difficulty_level, instructions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.id, e.name, e.description, e.primary, e.secondary, e.equipment, e.difficulty, e.instructions); err != nil {
			return err
		}
	}
	return nil
}
