package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		budget  Budget
		wantErr bool
	}{
		{"questions", QuestionBudget(5), false},
		{"duration", DurationBudget(10), false},
		{"zero questions", QuestionBudget(0), true},
		{"negative minutes", DurationBudget(-1), true},
		{"both set", Budget{Kind: BudgetDuration, Minutes: 5, Questions: 3}, true},
		{"unknown kind", Budget{Kind: "laps", Questions: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrompt_Speaker(t *testing.T) {
	assert.Equal(t, "Dana, CEO", Prompt{Name: "Dana", Title: "CEO"}.Speaker())
	assert.Equal(t, "Dana", Prompt{Name: "Dana"}.Speaker())
	assert.Equal(t, "cfo", Prompt{Executive: "cfo"}.Speaker())
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := &Session{Turns: []Turn{{Response: &Response{Text: "a"}}}}
	c := s.Clone()
	c.Turns[0].Response.Text = "b"
	c.Turns = append(c.Turns, Turn{})

	assert.Equal(t, "a", s.Turns[0].Response.Text)
	assert.Len(t, s.Turns, 1)
	assert.Equal(t, 1, s.Answered())
}
