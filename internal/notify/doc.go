// Package notify доставляет жизненные события run'ов и задач
// внешним подписчикам.
//
// Порт Notifier — fire-and-forget: оркестратор вызывает его в
// отдельной горутине, и никакая ошибка доставки не влияет на
// исполнение run. Реализации:
//
//   - AMQPNotifier — публикация в RabbitMQ (обменник conductor.events,
//     routing key = тип события)
//   - LogNotifier  — structured log, для разработки и как fallback
//   - NopNotifier  — заглушка для тестов
//   - Fanout       — рассылка нескольким notifier'ам
package notify
