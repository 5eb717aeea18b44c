package mqttv3

import "sync"

// MessageHandler handles incoming MQTT messages.
type MessageHandler func(msg *Message)

// Router delivers inbound messages to handlers registered per topic filter.
// It only matches locally; it does not subscribe at the broker.
type Router struct {
	mu     sync.RWMutex
	routes map[string]MessageHandler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]MessageHandler)}
}

// Handle registers handler for filter, replacing any previous handler.
func (r *Router) Handle(filter string, handler MessageHandler) error {
	if err := ValidateTopicFilter(filter); err != nil {
		return err
	}

	r.mu.Lock()
	r.routes[filter] = handler
	r.mu.Unlock()
	return nil
}

// Remove drops the handler for filter.
func (r *Router) Remove(filter string) {
	r.mu.Lock()
	delete(r.routes, filter)
	r.mu.Unlock()
}

// Route calls every handler whose filter matches msg.Topic and reports
// whether any matched. Handlers run without the lock held, so they may
// call Handle or Remove.
func (r *Router) Route(msg *Message) bool {
	r.mu.RLock()
	var handlers []MessageHandler
	for filter, handler := range r.routes {
		if TopicMatch(filter, msg.Topic) {
			handlers = append(handlers, handler)
		}
	}
	r.mu.RUnlock()

	for _, handler := range handlers {
		handler(msg)
	}

	return len(handlers) > 0
}
