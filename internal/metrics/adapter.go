package metrics

import (
	"context"

	kit "donobot/internal/transport"
)

// InstrumentAdapter wraps a chat adapter so every outbound call is counted.
func InstrumentAdapter(next kit.Adapter, rec *Recorder) kit.Adapter {
	if rec == nil {
		return next
	}
	return &instrumentedAdapter{next: next, rec: rec}
}

type instrumentedAdapter struct {
	next kit.Adapter
	rec  *Recorder
}

func (a *instrumentedAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	ref, err := a.next.SendText(ctx, to, text, opt)
	a.rec.ChannelCall("send", err)
	return ref, err
}

func (a *instrumentedAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	err := a.next.EditText(ctx, ref, text, opt)
	a.rec.ChannelCall("edit", err)
	return err
}

func (a *instrumentedAdapter) DeleteMessage(ctx context.Context, ref kit.MessageRef) error {
	err := a.next.DeleteMessage(ctx, ref)
	a.rec.ChannelCall("delete", err)
	return err
}
