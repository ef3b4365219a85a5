// Package notify decides how an incoming notification is surfaced given
// what the user is currently looking at.
package notify

const TypeMessage = "message"

// Notification is an incoming in-app or push notification.
type Notification struct {
	ID       string
	Type     string
	ActorID  string
	SenderID string
	Title    string
	Body     string
}

// Decision lists which surfaces a notification may use.
type Decision struct {
	ShowAlert  bool
	PlaySound  bool
	ShowBanner bool
	ShowInList bool
	SetBadge   bool
}

// Presenter surfaces a notification according to the decision. badge is
// the unread count the app icon should show.
type Presenter interface {
	Present(n Notification, d Decision, badge int64)
}

// Gate decides how notifications are surfaced from the shared State.
type Gate struct {
	state *State
}

func NewGate(state *State) *Gate {
	return &Gate{state: state}
}

// Decide applies the suppression rules:
//   - anything from the partner of the open conversation is fully suppressed;
//   - a message while the chat tab is active only lands in the list;
//   - everything else is shown.
//
// The badge is always updated.
func (g *Gate) Decide(n Notification) Decision {
	partner := g.state.ActiveChatID()

	if partner != "" && (n.ActorID == partner || n.SenderID == partner) {
		return Decision{SetBadge: true}
	}
	if n.Type == TypeMessage && g.state.ChatTabActive() {
		return Decision{ShowInList: true, SetBadge: true}
	}
	return Decision{ShowAlert: true, PlaySound: true, ShowBanner: true, ShowInList: true, SetBadge: true}
}

// Handle decides and hands the result to p.
func (g *Gate) Handle(n Notification, p Presenter, badge int64) Decision {
	d := g.Decide(n)
	if p != nil {
		p.Present(n, d, badge)
	}
	return d
}
