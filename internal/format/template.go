package format

const templatePrompt = `Ты бот, который форматирует кастинг в единый шаблон.
ТОЛЬКО ШАБЛОН, БЕЗ вступлений, объяснений или оправданий.
Порядок работы:
- Прочитай текст сообщения.
- Если к сообщению прикреплено изображение и на нём есть текст, учти этот текст.
- Если на изображении нет текста, игнорируй изображение.
- Не описывай внешность, лица и фон.

Формат шаблона:
🎨 Проект: [название/тип проекта]
👤 Роль/Типаж: [описание роли]
🗓 Дата съёмок: [дата]
⏰ Время: [время]
💰 Гонорар: [сумма]
📍 Локация: [город/место]
📬 Контакт: [ссылка/никнейм]
📝 Доп. информация: [всё остальное]

Если какое-то поле не указано, ставь прочерк "-".

Вот сообщение:
%s
`

// DefaultRefusalMarkers are lower-case substrings that mark a model answer
// as a refusal or apology rather than a template.
var DefaultRefusalMarkers = []string{
	"i'm sorry", "im sorry", "sorry", "i cannot", "i can't", "i wont", "i won't",
	"i am unable", "i'm unable", "unable to", "not able to", "as an ai", "i am an ai",
	"i cannot help", "can't help", "i cannot provide", "i can't provide",
	"this content is not allowed", "cannot comply", "i must refuse",
	"извините", "извиняюсь", "простите", "к сожалению",
	"не могу", "не смогу", "не буду", "я не могу", "я не буду",
	"я не имею права", "не имею права", "не могу помочь", "не могу предоставить",
}
