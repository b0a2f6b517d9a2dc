package modules

import (
	"github.com/jaswdr/faker"
)

// Faker backs the `faker` module via jaswdr/faker, already an indirect
// teacher dependency (promoted to direct here).
type Faker struct {
	f faker.Faker
}

func NewFaker() Faker {
	return Faker{f: faker.New()}
}

func (m Faker) Name() string     { return m.f.Person().Name() }
func (m Faker) Email() string    { return m.f.Internet().Email() }
func (m Faker) Address() string  { return m.f.Address().Address() }
func (m Faker) Phone() string    { return m.f.Phone().Number() }
func (m Faker) Sentence() string { return m.f.Lorem().Sentence(10) }
func (m Faker) UserAgent() string {
	agents := []func() string{
		m.f.UserAgent().Chrome,
		m.f.UserAgent().Firefox,
		m.f.UserAgent().Safari,
		m.f.UserAgent().Opera,
	}
	return agents[int(m.f.RandomDigit())%len(agents)]()
}

func (m Faker) Object() map[string]any {
	return map[string]any{
		"name":       m.Name,
		"email":      m.Email,
		"address":    m.Address,
		"phone":      m.Phone,
		"sentence":   m.Sentence,
		"user_agent": m.UserAgent,
	}
}
