package classify

const castingPrompt = `Ты анализируешь текст и изображение, чтобы определить, является ли это сообщение объявлением кастинга.

1. Сначала прочитай текст сообщения.
2. Если на изображении есть текст, учти его. Визуальные элементы (лица, эмоции, фон) игнорируй полностью.
3. Если в тексте (или в тексте на изображении) есть хотя бы один из пунктов:
- проект или тип съёмки,
- типаж или роль,
- дата съёмки,
- время съёмки,
- локация,
- контакт для связи,
то это настоящий кастинг.

Если условий нет, ответь: "нет".
Если всё подходит, ответь: "да".
Только одно слово: "да" или "нет".

Вот сообщение:
%s
`

const matchSystem = "Ты профессиональный кастинг-директор."

const matchPrompt = `У тебя есть кастинг и актёрский профиль. Определи, подходит ли этот кастинг человеку.

Будь гибким:
- Если в кастинге нет каких-то требований (типаж, рост, телосложение), это не мешает подбору.
- Если параметры совпадают частично, но человек мог бы подойти на роль, считай, что подходит.

Кастинг:
%s

Профиль актёра:
Пол: %s
Типаж: %s
Игровой возраст: %s
Рост: %s
Телосложение: %s
Город: %s

Подходит ли этот кастинг человеку?
Ответь строго: да или нет.
`
