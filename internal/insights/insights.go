// Package insights produces market analysis for a startup idea from a
// curated research dataset. The analysis is written back into project memory
// so later chat turns can retrieve it.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ideawell/cofounderd/internal/errs"
	"github.com/ideawell/cofounderd/internal/memory"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

// Statistics summarizes market size and audience for a category.
type Statistics struct {
	MarketSize   string `json:"marketSize"`
	Growth       string `json:"growth"`
	Demographics string `json:"demographics"`
}

// Insights is one market analysis result.
type Insights struct {
	Summary    string     `json:"summary"`
	Problems   []string   `json:"problems"`
	UserQuotes []string   `json:"userQuotes"`
	Statistics Statistics `json:"statistics"`
	Sentiment  string     `json:"sentiment"`
	Confidence float64    `json:"confidence"`
	Source     string     `json:"source"`
}

// Analyzer maps ideas onto the research dataset and records results.
type Analyzer struct {
	writer *memory.Writer
}

// NewAnalyzer creates an Analyzer. writer may be nil to skip memory
// write-back.
func NewAnalyzer(writer *memory.Writer) *Analyzer {
	return &Analyzer{writer: writer}
}

// Analyze returns insights for the idea and, when projectID is set, records
// the summary as a market-analysis memory. The write-back is best-effort.
func (a *Analyzer) Analyze(ctx context.Context, idea, projectID string) (Insights, error) {
	if strings.TrimSpace(idea) == "" {
		return Insights{}, goerr.New("empty idea", goerr.T(errs.TagInvalidInput))
	}

	ins := lookup(idea)

	if a.writer != nil && projectID != "" {
		a.writer.TryRecord(ctx, projectID, vectorstore.TypeMarketAnalysis, ins.Summary, map[string]string{
			"source":   ins.Source,
			"category": DetectCategory(idea),
		})
	}
	return ins, nil
}

// DetectCategory maps an idea onto a dataset category by keyword, falling
// back to "general" when nothing matches.
func DetectCategory(idea string) string {
	lower := strings.ToLower(idea)
	for _, kc := range categoryKeywords {
		if strings.Contains(lower, kc.keyword) {
			return kc.category
		}
	}
	return "general"
}

func lookup(idea string) Insights {
	data, ok := marketInsights[DetectCategory(idea)]
	if !ok {
		data = marketInsights["general"]
	}
	return Insights{
		Summary:    fmt.Sprintf("Анализ рынка для %q на основе исследовательской базы данных", idea),
		Problems:   data.Problems,
		UserQuotes: data.UserQuotes,
		Statistics: data.Statistics,
		Sentiment:  "mixed",
		Confidence: 0.7,
		Source:     "Fallback Database",
	}
}

type keywordCategory struct {
	keyword  string
	category string
}

// Keyword order matters: first match wins.
var categoryKeywords = []keywordCategory{
	{"plant", "plant_care"},
	{"растен", "plant_care"},
	{"fitness", "fitness"},
	{"workout", "fitness"},
	{"фитнес", "fitness"},
	{"тренировк", "fitness"},
	{"productivity", "productivity"},
	{"task", "productivity"},
	{"продуктивност", "productivity"},
	{"задач", "productivity"},
	{"food", "food_delivery"},
	{"restaurant", "food_delivery"},
	{"еда", "food_delivery"},
	{"ресторан", "food_delivery"},
	{"travel", "travel"},
	{"путешеств", "travel"},
	{"education", "education"},
	{"learning", "education"},
	{"обучени", "education"},
	{"health", "healthcare"},
	{"medical", "healthcare"},
	{"здоровь", "healthcare"},
	{"finance", "fintech"},
	{"money", "fintech"},
	{"финанс", "fintech"},
	{"деньги", "fintech"},
	{"shopping", "ecommerce"},
	{"buy", "ecommerce"},
	{"покупк", "ecommerce"},
}

type categoryData struct {
	Problems   []string
	UserQuotes []string
	Statistics Statistics
}

var marketInsights = map[string]categoryData{
	"plant_care": {
		Problems: []string{
			"73% людей забывают поливать растения регулярно",
			"Большинство не знает, как определить болезни растений",
			"Сложно понять, сколько света нужно разным растениям",
			"Нет понимания, когда пересаживать растения",
		},
		UserQuotes: []string{
			"Я постоянно забываю поливать, и растения умирают",
			"Не понимаю, почему листья желтеют",
			"Хочу растения дома, но боюсь их убить",
			"Не знаю, как ухаживать за разными видами",
		},
		Statistics: Statistics{
			MarketSize:   "$2.7B indoor plant market",
			Growth:       "18% annual growth",
			Demographics: "25-40 years, urban millennials",
		},
	},
	"fitness": {
		Problems: []string{
			"80% людей бросают тренировки через 3 месяца",
			"Сложно найти мотивацию заниматься дома",
			"Не знают правильную технику упражнений",
			"Нет времени на походы в спортзал",
		},
		UserQuotes: []string{
			"Начинаю тренироваться, но быстро теряю мотивацию",
			"Не знаю, как правильно делать упражнения",
			"Хочу заниматься дома, но не знаю с чего начать",
			"У меня нет времени на спортзал",
		},
		Statistics: Statistics{
			MarketSize:   "$96B global fitness market",
			Growth:       "12% annual growth",
			Demographics: "18-45 years, health-conscious",
		},
	},
	"productivity": {
		Problems: []string{
			"Люди тратят 2.5 часа в день на отвлекающие факторы",
			"Сложно организовать задачи и приоритеты",
			"Многозадачность снижает эффективность на 40%",
			"Нет системы для отслеживания прогресса",
		},
		UserQuotes: []string{
			"Постоянно отвлекаюсь и ничего не успеваю",
			"Не знаю, как организовать свои задачи",
			"Хочу быть продуктивнее, но не знаю как",
			"Много дел, но нет системы",
		},
		Statistics: Statistics{
			MarketSize:   "$58B productivity software market",
			Growth:       "15% annual growth",
			Demographics: "25-50 years, knowledge workers",
		},
	},
	"food_delivery": {
		Problems: []string{
			"Долгое время доставки (45+ минут)",
			"Холодная еда при доставке",
			"Высокие цены и комиссии",
			"Ограниченный выбор ресторанов",
		},
		UserQuotes: []string{
			"Еда приходит холодной и невкусной",
			"Слишком долго ждать доставку",
			"Цены завышены из-за комиссий",
			"Мало ресторанов в моем районе",
		},
		Statistics: Statistics{
			MarketSize:   "$150B global food delivery market",
			Growth:       "20% annual growth",
			Demographics: "18-45 years, urban dwellers",
		},
	},
	"travel": {
		Problems: []string{
			"Сложно найти лучшие цены на билеты",
			"Планирование маршрута занимает много времени",
			"Не знают местные особенности и культуру",
			"Страх заблудиться в незнакомом месте",
		},
		UserQuotes: []string{
			"Трачу часы на поиск дешевых билетов",
			"Не знаю, что посмотреть в новом городе",
			"Боюсь заблудиться в незнакомом месте",
			"Планирование поездки - это стресс",
		},
		Statistics: Statistics{
			MarketSize:   "$1.7T global travel market",
			Growth:       "8% annual growth",
			Demographics: "25-55 years, middle to upper class",
		},
	},
	"education": {
		Problems: []string{
			"Скучные и неинтерактивные курсы",
			"Высокая стоимость качественного образования",
			"Не хватает практических навыков",
			"Сложно найти подходящий курс",
		},
		UserQuotes: []string{
			"Курсы скучные и неинтересные",
			"Слишком дорого за качественное обучение",
			"Хочу практические навыки, а не теорию",
			"Не могу найти подходящий курс",
		},
		Statistics: Statistics{
			MarketSize:   "$366B global education market",
			Growth:       "10% annual growth",
			Demographics: "18-65 years, lifelong learners",
		},
	},
	"healthcare": {
		Problems: []string{
			"Долгое ожидание приема врача",
			"Сложно получить второе мнение",
			"Высокие цены на медицинские услуги",
			"Не хватает информации о симптомах",
		},
		UserQuotes: []string{
			"Жду приема врача несколько недель",
			"Хочу получить второе мнение, но не знаю как",
			"Медицина слишком дорогая",
			"Не понимаю свои симптомы",
		},
		Statistics: Statistics{
			MarketSize:   "$4.5T global healthcare market",
			Growth:       "6% annual growth",
			Demographics: "All ages, health-conscious",
		},
	},
	"fintech": {
		Problems: []string{
			"Сложные и запутанные финансовые продукты",
			"Высокие комиссии за переводы",
			"Не хватает финансовой грамотности",
			"Страх потерять деньги при инвестировании",
		},
		UserQuotes: []string{
			"Не понимаю финансовые продукты",
			"Слишком высокие комиссии",
			"Хочу инвестировать, но боюсь потерять деньги",
			"Не знаю, как управлять финансами",
		},
		Statistics: Statistics{
			MarketSize:   "$310B global fintech market",
			Growth:       "25% annual growth",
			Demographics: "25-55 years, tech-savvy",
		},
	},
	"ecommerce": {
		Problems: []string{
			"Сложно найти нужный товар",
			"Не доверяют качеству товаров онлайн",
			"Проблемы с возвратом и обменом",
			"Высокие цены доставки",
		},
		UserQuotes: []string{
			"Не могу найти то, что нужно",
			"Боюсь, что товар будет плохого качества",
			"Сложно вернуть товар, если не подошел",
			"Доставка стоит слишком дорого",
		},
		Statistics: Statistics{
			MarketSize:   "$5.7T global ecommerce market",
			Growth:       "14% annual growth",
			Demographics: "18-65 years, online shoppers",
		},
	},
	"general": {
		Problems: []string{
			"Пользователи ищут простое решение сложных проблем",
			"Не хватает персонализированного подхода",
			"Слишком много вариантов, сложно выбрать",
			"Нет доверия к новым решениям",
		},
		UserQuotes: []string{
			"Хочу простое решение моей проблемы",
			"Нужен индивидуальный подход",
			"Слишком много вариантов, не знаю что выбрать",
			"Не доверяю новым сервисам",
		},
		Statistics: Statistics{
			MarketSize:   "Varies by industry",
			Growth:       "10-20% annual growth",
			Demographics: "Varies by target audience",
		},
	},
}
