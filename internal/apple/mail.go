// Copyright 2025 Joseph Cumines
//
// Mail.app adapter (send and mailbox listing; reads go through internal/store)

package apple

import (
	"context"
	"fmt"
)

// Mailbox is one mailbox within a Mail.app account.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Mailbox struct {
	Name    string `json:"name"`
	Account string `json:"account"`
	Unread  int    `json:"unread"`
}

// MailDraft is the input for sending a message.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type MailDraft struct {
	To      []string
	CC      []string
	Subject string
	Body    string
}

const listMailboxesScript = `(() => {
	const app = Application('Mail');
	const out = [];
	for (const account of app.accounts()) {
		for (const mb of account.mailboxes()) {
			out.push({
				name: mb.name(),
				account: account.name(),
				unread: mb.unreadCount(),
			});
		}
	}
	return JSON.stringify(out);
})()`

const sendMailScriptFmt = `(() => {
	const app = Application('Mail');
	const msg = app.OutgoingMessage({subject: %s, content: %s, visible: false});
	app.outgoingMessages.push(msg);
	for (const addr of %s) {
		msg.toRecipients.push(app.ToRecipient({address: addr}));
	}
	for (const addr of %s) {
		msg.ccRecipients.push(app.CcRecipient({address: addr}));
	}
	msg.send();
	return JSON.stringify({sent: true});
})()`

// MailClient sends mail and lists mailboxes through Mail.app.
type MailClient struct {
	runner ScriptRunner
}

// NewMailClient creates a mail adapter backed by the given runner.
func NewMailClient(runner ScriptRunner) *MailClient {
	return &MailClient{runner: runner}
}

// ListMailboxes returns every mailbox across all configured accounts.
func (c *MailClient) ListMailboxes(ctx context.Context) ([]Mailbox, error) {
	var mailboxes []Mailbox
	if err := runJSON(ctx, c.runner, "mail.mailboxes", listMailboxesScript, &mailboxes); err != nil {
		return nil, err
	}
	return mailboxes, nil
}

// SendMail composes and sends a message through the default account.
func (c *MailClient) SendMail(ctx context.Context, draft MailDraft) error {
	cc := draft.CC
	if cc == nil {
		cc = []string{}
	}
	script := fmt.Sprintf(sendMailScriptFmt,
		jsArg(draft.Subject), jsArg(draft.Body), jsArg(draft.To), jsArg(cc))
	var result struct {
		Sent bool `json:"sent"`
	}
	if err := runJSON(ctx, c.runner, "mail.send", script, &result); err != nil {
		return err
	}
	if !result.Sent {
		return &Error{Op: "mail.send", Detail: "message was not sent", Kind: KindScript}
	}
	return nil
}
