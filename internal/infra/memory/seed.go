package memory

import (
	"time"

	"trivia-live-service/internal/domain"
)

// Seed fills s with demo users, football questions and two scheduled
// competitions so a fresh server has something to join.
func Seed(s *Store) {
	for _, u := range []domain.User{
		{Username: "admin", DisplayName: "Admin User"},
		{Username: "john_doe", DisplayName: "John Doe"},
		{Username: "emma_wilson", DisplayName: "Emma Wilson"},
		{Username: "mike_johnson", DisplayName: "Mike Johnson"},
	} {
		s.PutUser(u)
	}

	var ids []int64
	for _, q := range []domain.Question{
		{
			Text:              "Which goalkeeper holds the record for the most clean sheets in a single Premier League season, achieving 24 clean sheets?",
			CorrectAnswer:     "Petr Cech",
			AcceptableAnswers: []string{"Petr Cech", "Petr Čech", "Cech", "Čech"},
			Difficulty:        "hard",
			Category:          "Premier League Records",
		},
		{
			Text:              "Name the Italian defender who scored the winning goal in the 2006 World Cup Final penalty shootout.",
			CorrectAnswer:     "Fabio Grosso",
			AcceptableAnswers: []string{"Fabio Grosso", "Grosso"},
			Difficulty:        "hard",
			Category:          "World Cup History",
		},
		{
			Text:              "What is the name of the stadium where Athletic Bilbao plays their home matches?",
			CorrectAnswer:     "San Mamés",
			AcceptableAnswers: []string{"San Mamés", "San Mames", "Estadio San Mamés"},
			Difficulty:        "medium",
			Category:          "Stadiums",
		},
		{
			Text:              "Which Brazilian footballer is known as 'The Phenomenon' and won the Ballon d'Or twice?",
			CorrectAnswer:     "Ronaldo",
			AcceptableAnswers: []string{"Ronaldo", "Ronaldo Nazário", "R9"},
			Difficulty:        "medium",
			Category:          "Player Nicknames",
		},
		{
			Text:              "In which year did Leicester City win the Premier League title?",
			CorrectAnswer:     "2016",
			AcceptableAnswers: []string{"2016", "2015-16", "2015/16"},
			Difficulty:        "easy",
			Category:          "Premier League History",
		},
	} {
		q.Type = "text-input"
		q.TimeLimit = 60
		ids = append(ids, s.PutQuestion(q).ID)
	}

	now := s.now()
	s.CreateCompetition(domain.Competition{
		Title:           "Friday Night Football Quiz",
		Description:     "Test your football knowledge in this exciting live competition!",
		ScheduledStart:  now.Add(2 * time.Hour),
		Duration:        1800,
		QuestionIDs:     ids,
		MaxParticipants: 50,
	})
	s.CreateCompetition(domain.Competition{
		Title:           "Premier League Legends",
		Description:     "How well do you know Premier League history?",
		ScheduledStart:  now.Add(30 * time.Minute),
		Duration:        1200,
		QuestionIDs:     []int64{ids[0], ids[2], ids[4]},
		MaxParticipants: 30,
	})
}
