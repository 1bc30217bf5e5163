package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/channel"
	"github.com/ridgeline-homes/portalchat/pkg/clientsync"
	"github.com/ridgeline-homes/portalchat/pkg/events"
	"github.com/ridgeline-homes/portalchat/pkg/model"
	"github.com/ridgeline-homes/portalchat/pkg/typing"
)

type LoginResponse struct {
	Token string `json:"token"`
}

type app struct {
	apiAddr string
	token   string
	userID  string

	conn   *websocket.Conn
	connMu sync.Mutex

	// The reconciler owns all cross-goroutine state, the open-channel id
	// included; the socket reader, the refresh ticker and the stdin loop
	// all go through it.
	state  *clientsync.Reconciler
	notify *typing.Notifier
	log    *zap.Logger
}

func login(apiAddr, userID, userName string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID, "user_name": userName})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}
	return loginResp.Token, nil
}

func (a *app) get(path string, out any) error {
	req, _ := http.NewRequest(http.MethodGet, a.apiAddr+path, nil)
	req.Header.Set("Authorization", "Bearer "+a.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %s", path, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *app) post(path string, body any) error {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, a.apiAddr+path, bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %s", path, string(raw))
	}
	return nil
}

func (a *app) writeFrame(v any) error {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	return a.conn.WriteJSON(v)
}

// refresh is the periodic reconciliation pass: authoritative history for
// the open channel and the authoritative conversation list, both merged
// through the same dedup paths as live events.
func (a *app) refresh() {
	if current := a.state.OpenID(); current != "" {
		var msgs []model.Message
		if err := a.get("/history?channel_id="+url.QueryEscape(current), &msgs); err == nil {
			a.state.ApplyReload(current, msgs)
		}
	}
	var conversations []model.Conversation
	if err := a.get("/conversations", &conversations); err == nil {
		a.state.ApplyConversations(conversations)
	}
}

func (a *app) open(channelID string) {
	// Badge zeroes immediately; the mark-read round trip runs behind it.
	a.state.OpenChannel(channelID)

	var msgs []model.Message
	if err := a.get("/history?channel_id="+url.QueryEscape(channelID), &msgs); err != nil {
		fmt.Printf("history: %v\n", err)
	} else {
		a.state.ApplyReload(channelID, msgs)
	}

	go func() {
		if err := a.writeFrame(map[string]any{"type": "read", "channelId": channelID}); err != nil {
			a.log.Warn("send read frame", zap.Error(err))
		}
	}()

	a.render()
}

func (a *app) render() {
	current := a.state.OpenID()
	fmt.Print("\033[2J\033[H")
	for _, e := range a.state.Conversations() {
		marker := " "
		if e.ChannelID == current {
			marker = ">"
		}
		badge := ""
		if e.Unread > 0 {
			badge = fmt.Sprintf(" (%d)", e.Unread)
		}
		fmt.Printf("%s %s%s  %s\n", marker, e.ChannelID, badge, e.Preview)
	}
	fmt.Printf("-- total unread: %d --\n\n", a.state.TotalUnread())

	if current != "" {
		for _, m := range a.state.Messages(current) {
			read := ""
			if m.SenderID == a.userID && m.Read() {
				read = " ✓✓"
			}
			fmt.Printf("[%s] %s: %s%s\n", m.CreatedAt.Format("15:04:05"), m.SenderName, m.Body, read)
		}
		if typists := a.state.Typists(current); len(typists) > 0 {
			fmt.Printf("%s typing...\n", strings.Join(typists, ", "))
		}
	}
	fmt.Print("> ")
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "user1", "user id")
	userName := flag.String("name", "", "display name")
	dmUser := flag.String("dm", "", "user id to open a direct channel with")
	channelID := flag.String("channel", "", "channel id to open")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *userName == "" {
		*userName = *userID
	}

	current := *channelID
	if *dmUser != "" {
		current = channel.DirectID(*userID, *dmUser)
	}

	token, err := login(*apiAddr, *userID, *userName)
	if err != nil {
		log.Fatal("login", zap.Error(err))
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial gateway", zap.Error(err))
	}
	defer conn.Close()

	a := &app{
		apiAddr: *apiAddr,
		token:   token,
		userID:  *userID,
		conn:    conn,
		state:   clientsync.New(*userID, typing.DefaultQuiet, log),
		log:     log,
	}
	a.notify = typing.NewNotifier(func(isTyping bool) {
		current := a.state.OpenID()
		if current == "" {
			return
		}
		if err := a.writeFrame(map[string]any{"type": "typing", "channelId": current, "isTyping": isTyping}); err != nil {
			log.Warn("send typing frame", zap.Error(err))
		}
	}, typing.DefaultThrottle, typing.DefaultQuiet)

	a.refresh()
	if current != "" {
		a.open(current)
	} else {
		a.render()
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := events.Decode(raw)
			if err != nil {
				log.Warn("decode frame", zap.Error(err))
				continue
			}
			switch env.Event {
			case events.KindSendAck:
				var ack events.SendAck
				if err := json.Unmarshal(env.Data, &ack); err == nil {
					a.state.ApplyLocalSend(ack.Message)
				}
			case events.KindSendError:
				fmt.Println("message not sent; type /retry to resend")
			default:
				if err := a.state.HandleEvent(raw); err != nil {
					log.Warn("apply event", zap.Error(err))
				}
			}
			a.render()
		}
	}()

	// Periodic reconciliation picks up anything a dropped push missed.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			a.refresh()
			a.render()
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		var lastBody string
		for scanner.Scan() {
			text := scanner.Text()
			switch {
			case text == "":
			case text == "/quit":
				close(interrupt)
				return
			case strings.HasPrefix(text, "/dm "):
				a.open(channel.DirectID(*userID, strings.TrimSpace(text[4:])))
				continue
			case strings.HasPrefix(text, "/open "):
				a.open(strings.TrimSpace(text[6:]))
				continue
			case text == "/retry" && lastBody != "":
				text = lastBody
				fallthrough
			default:
				current := a.state.OpenID()
				if current == "" {
					fmt.Println("open a channel first: /dm <user> or /open <channel>")
					break
				}
				// Line input is the closest thing to a keystroke here.
				a.notify.Keystroke()
				lastBody = text
				if err := a.writeFrame(map[string]any{"type": "message", "channelId": current, "body": text}); err != nil {
					log.Warn("send message frame", zap.Error(err))
				}
				a.notify.Blur()
			}
			a.render()
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
