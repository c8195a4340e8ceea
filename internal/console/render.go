package console

import (
	"strings"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
)

type renderer struct {
	c         *Console
	printed   string
	streaming bool
}

// render prints session events until the subscription closes, then prints
// whatever was already queued. The bot reply is printed one character at a
// time as deltas arrive.
func (c *Console) render(sub *chatcore.Subscription) {
	r := &renderer{c: c}

	for {
		select {
		case ev := <-sub.Events():
			r.handle(ev)
		case <-sub.Done():
			for {
				select {
				case ev := <-sub.Events():
					r.handle(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *renderer) handle(ev chatcore.Event) {
	out := r.c.out

	switch ev.Kind {
	case chatcore.EventPhase:
		r.c.observePhase(ev.Phase)
		switch ev.Phase {
		case chatcore.PhaseSending:
			out.println("...")
		case chatcore.PhaseStreaming:
			out.printf("assistant> ")
			r.streaming = true
			r.printed = ""
		}

	case chatcore.EventDelta:
		if !r.streaming {
			return
		}
		// a dropped delta is caught up from the partial text
		if strings.HasPrefix(ev.Partial, r.printed) {
			out.printf("%s", ev.Partial[len(r.printed):])
			r.printed = ev.Partial
		}

	case chatcore.EventMessage:
		if ev.Message == nil || ev.Message.Sender != entity.SenderBot {
			return
		}
		if !r.streaming {
			out.printf("assistant> ")
			r.printed = ""
		}
		if strings.HasPrefix(ev.Message.Text, r.printed) {
			out.printf("%s", ev.Message.Text[len(r.printed):])
		}
		out.println("")
		r.streaming = false
		r.printed = ""

	case chatcore.EventStatus:
		if ev.Status != "" {
			out.printf("! %s\n", ev.Status)
		}

	case chatcore.EventVoice:
		if ev.Listening {
			out.println("[listening]")
		} else {
			out.println("[voice input off]")
		}

	case chatcore.EventInput:
		if ev.Input != "" {
			out.printf("heard: %s\n", ev.Input)
		}

	case chatcore.EventReset:
		if r.streaming {
			out.println("")
			r.streaming = false
		}
		out.println("--- new conversation ---")
	}
}
