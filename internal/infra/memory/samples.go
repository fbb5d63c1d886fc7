package memory

import "quiz-arena/internal/domain"

// SampleQuestions is the built-in bank used when no database is configured
// and by the seed command.
func SampleQuestions() []domain.Question {
	out := make([]domain.Question, len(sampleQuestions))
	for i, q := range sampleQuestions {
		out[i] = q.Clone()
	}
	return out
}

func gk(id, prompt string, d domain.Difficulty, correct string, options ...string) domain.Question {
	return sample("General Knowledge", id, prompt, d, correct, "", options...)
}

func sample(category, id, prompt string, d domain.Difficulty, correct, explanation string, options ...string) domain.Question {
	return domain.Question{
		ID:            id,
		Prompt:        prompt,
		Options:       options,
		CorrectOption: correct,
		Category:      category,
		Difficulty:    d,
		Explanation:   explanation,
	}
}

var sampleQuestions = []domain.Question{
	gk("gk-m-01", "How many sides does a hexagon have?", domain.DifficultyMedium, "6", "5", "6", "7", "8"),
	gk("gk-m-02", "Which planet is known as the Red Planet?", domain.DifficultyMedium, "Mars", "Venus", "Jupiter", "Mars", "Mercury"),
	gk("gk-m-03", "What is the largest ocean on Earth?", domain.DifficultyMedium, "Pacific", "Atlantic", "Indian", "Arctic", "Pacific"),
	gk("gk-m-04", "How many minutes are in a day?", domain.DifficultyMedium, "1440", "1240", "1440", "1600", "960"),
	gk("gk-m-05", "Which instrument has 88 keys?", domain.DifficultyMedium, "Piano", "Organ", "Accordion", "Piano", "Harpsichord"),
	gk("gk-m-06", "What is the chemical symbol for gold?", domain.DifficultyMedium, "Au", "Ag", "Au", "Gd", "Go"),
	gk("gk-m-07", "In which sport is the term 'love' used for a score of zero?", domain.DifficultyMedium, "Tennis", "Golf", "Tennis", "Cricket", "Squash"),
	gk("gk-m-08", "How many strings does a standard guitar have?", domain.DifficultyMedium, "6", "4", "5", "6", "12"),
	gk("gk-m-09", "Which language has the most native speakers?", domain.DifficultyMedium, "Mandarin Chinese", "English", "Spanish", "Hindi", "Mandarin Chinese"),
	gk("gk-m-10", "What is the freezing point of water in Fahrenheit?", domain.DifficultyMedium, "32", "0", "32", "100", "212"),
	gk("gk-m-11", "Which is the smallest prime number?", domain.DifficultyMedium, "2", "0", "1", "2", "3"),
	gk("gk-m-12", "How many continents are there?", domain.DifficultyMedium, "7", "5", "6", "7", "8"),

	gk("gk-e-01", "What colour do you get by mixing blue and yellow?", domain.DifficultyEasy, "Green", "Purple", "Green", "Orange", "Brown"),
	gk("gk-e-02", "How many days are in a leap year?", domain.DifficultyEasy, "366", "364", "365", "366", "367"),
	gk("gk-e-03", "Which animal is known as the king of the jungle?", domain.DifficultyEasy, "Lion", "Tiger", "Lion", "Elephant", "Gorilla"),
	gk("gk-e-04", "How many legs does a spider have?", domain.DifficultyEasy, "8", "6", "8", "10", "12"),

	sample("Science", "sci-m-01", "What gas do plants absorb from the air?", domain.DifficultyMedium, "Carbon dioxide",
		"Photosynthesis turns carbon dioxide and water into sugar and oxygen.",
		"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"),
	sample("Science", "sci-m-02", "What is the hardest natural substance?", domain.DifficultyMedium, "Diamond", "",
		"Quartz", "Diamond", "Granite", "Topaz"),
	sample("Science", "sci-m-03", "What particle carries a negative charge?", domain.DifficultyMedium, "Electron", "",
		"Proton", "Neutron", "Electron", "Photon"),
	sample("Science", "sci-m-04", "What is the powerhouse of the cell?", domain.DifficultyMedium, "Mitochondria", "",
		"Nucleus", "Ribosome", "Mitochondria", "Golgi apparatus"),
	sample("Science", "sci-h-01", "What is the approximate speed of light in a vacuum in km/s?", domain.DifficultyHard, "300000", "",
		"150000", "300000", "450000", "30000"),
	sample("Science", "sci-h-02", "Which element has atomic number 26?", domain.DifficultyHard, "Iron", "",
		"Cobalt", "Nickel", "Iron", "Manganese"),

	sample("Geography", "geo-e-01", "What is the capital of France?", domain.DifficultyEasy, "Paris", "",
		"Lyon", "Paris", "Marseille", "Nice"),
	sample("Geography", "geo-e-02", "Which is the longest river in Africa?", domain.DifficultyEasy, "Nile", "",
		"Congo", "Niger", "Nile", "Zambezi"),
	sample("Geography", "geo-e-03", "On which continent is Brazil?", domain.DifficultyEasy, "South America", "",
		"Africa", "South America", "Asia", "Europe"),
	sample("Geography", "geo-m-01", "What is the capital of Australia?", domain.DifficultyMedium, "Canberra",
		"Canberra was purpose-built as a compromise between Sydney and Melbourne.",
		"Sydney", "Melbourne", "Canberra", "Perth"),
	sample("Geography", "geo-m-02", "Which country has the most time zones?", domain.DifficultyMedium, "France",
		"Overseas territories give France twelve time zones.",
		"Russia", "United States", "France", "China"),

	sample("History", "his-h-01", "In which year did the Berlin Wall fall?", domain.DifficultyHard, "1989", "",
		"1987", "1989", "1991", "1993"),
	sample("History", "his-h-02", "Who was the first emperor of Rome?", domain.DifficultyHard, "Augustus", "",
		"Julius Caesar", "Augustus", "Nero", "Tiberius"),
	sample("History", "his-h-03", "Which empire built Machu Picchu?", domain.DifficultyHard, "Inca", "",
		"Aztec", "Maya", "Inca", "Olmec"),
}
