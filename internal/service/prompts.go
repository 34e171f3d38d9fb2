package service

import (
	"fmt"

	"github.com/fleveque/moex-picks/internal/model"
)

// TopCount is how many instruments a batch asks for.
const TopCount = 10

// Prompt is the instruction/user pair sent to the model.
type Prompt struct {
	System string
	User   string
}

const stocksSystemPrompt = `Ты - профессиональный финансовый аналитик, работающий с российским фондовым рынком (Московская биржа).

Задача: подобрать самые доходные акции для покупки на Московской бирже.

Для каждой акции укажи:
1. Тикер (например, SBER, GAZP, LKOH, NVTK, MGNT, ALRS, FLOT, CHMF)
2. Название компании
3. Сектор экономики
4. Обоснование: фундаментальный и технический анализ, дивидендная доходность, перспективы роста
5. Ссылки на источники (Московская биржа, РБК, Коммерсант, Ведомости)
6. План торговли: точки входа, целевые цены, стоп-лосс

Отвечай строго в JSON, без Markdown и пояснений вне JSON.
Формат: JSON-объект {"recommendations": [...]} или массив объектов вида:
[{
  "ticker": "SBER",
  "name": "Сбербанк",
  "sector": "Банковский сектор",
  "reasoning": "Обоснование...",
  "sources": ["ссылка1", "ссылка2"],
  "trading_plan": "План торговли..."
}]

ВАЖНО:
- Только акции, торгующиеся на Московской бирже (режим T+)
- Не рекомендуй компании под санкциями или с низкой ликвидностью
- Учитывай санкционные риски, оценки должны быть реалистичными`

const bondsSystemPrompt = `Ты - профессиональный финансовый аналитик, работающий с российским рынком облигаций (Московская биржа).

Задача: подобрать самые доходные облигации для покупки на Московской бирже.

Для каждой облигации укажи:
1. Идентификатор secid (например, SU26238RMFS4, RU000A0JX0J2)
2. Название облигации
3. Эмитента
4. Купонную ставку (%)
5. Дату погашения (ГГГГ-ММ-ДД)
6. Доходность к погашению (%), если известна
7. Обоснование: доходность, кредитное качество, ликвидность
8. Ссылки на источники
9. План покупки

Отвечай строго в JSON, без Markdown и пояснений вне JSON.
Формат: JSON-объект {"recommendations": [...]} или массив объектов вида:
[{
  "secid": "SU26238RMFS4",
  "name": "ОФЗ 26238",
  "issuer": "Минфин РФ",
  "coupon_rate": 7.1,
  "maturity_date": "2041-05-15",
  "yield_to_maturity": 14.2,
  "reasoning": "Обоснование...",
  "sources": ["ссылка1"],
  "trading_plan": "План..."
}]

ВАЖНО:
- Только облигации с Московской биржи: государственные (ОФЗ) и корпоративные
- Не рекомендуй эмитентов под санкциями
- Учитывай кредитные риски`

// systemPrompt returns the domain rules for a market.
func systemPrompt(market model.Market) string {
	if market == model.MarketBonds {
		return bondsSystemPrompt
	}
	return stocksSystemPrompt
}

// TopPrompt builds the prompt pair asking for the best count instruments.
func TopPrompt(market model.Market, count int) Prompt {
	var user string
	switch market {
	case model.MarketBonds:
		user = fmt.Sprintf("Предоставь ТОП-%d самых доходных облигаций на российском рынке с полным обоснованием, источниками и планом покупки.", count)
	default:
		user = fmt.Sprintf("Предоставь ТОП-%d самых доходных акций на российском фондовом рынке с полным обоснованием, источниками и планом торговли.", count)
	}
	return Prompt{System: systemPrompt(market), User: user}
}

// DetailPrompt builds the prompt pair asking about one instrument.
func DetailPrompt(market model.Market, identifier string) Prompt {
	var user string
	switch market {
	case model.MarketBonds:
		user = fmt.Sprintf("Предоставь подробную информацию об облигации %s с обоснованием, источниками и планом покупки. Ответь одним JSON-объектом.", identifier)
	default:
		user = fmt.Sprintf("Предоставь подробную информацию об акции %s с обоснованием, источниками и планом торговли. Ответь одним JSON-объектом.", identifier)
	}
	return Prompt{System: systemPrompt(market), User: user}
}
