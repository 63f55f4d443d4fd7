// A demo bot: joins a game under a random-ish name and "finds" each round's
// target a few seconds in, standing in for the webcam recognizer.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// one writer at a time; submits fire from per-round goroutines
var writeMu sync.Mutex

const (
	MsgTypeJoinGame     = 101
	MsgTypeSubmitItem   = 103
	MsgTypeRoundStarted = 206
	MsgTypeError        = 300
)

type roundStarted struct {
	Round      int    `json:"round"`
	TargetItem string `json:"targetItem"`
	DurationMs int64  `json:"duration"`
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	name := flag.String("name", "bot", "player name")
	delay := flag.Duration("delay", 3*time.Second, "how long the bot pretends to search")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))

			if msgID == MsgTypeRoundStarted {
				var rs roundStarted
				if err := json.Unmarshal(data, &rs); err != nil {
					continue
				}
				go func(target string) {
					time.Sleep(*delay)
					claim := map[string]interface{}{
						"prediction": target,
						"confidence": 0.92,
						"timestamp":  time.Now().UnixMilli(),
					}
					claimData, _ := json.Marshal(claim)
					if err := send(c, MsgTypeSubmitItem, claimData); err != nil {
						log.Println("Write error:", err)
						return
					}
					log.Printf("-> SENT: claim %q", target)
				}(rs.TargetItem)
			}
		}
	}()

	join := map[string]string{"name": *name}
	joinData, _ := json.Marshal(join)
	if err := send(c, MsgTypeJoinGame, joinData); err != nil {
		log.Fatalf("Join failed: %v", err)
	}
	log.Printf("Joined as %q, waiting for rounds.", *name)

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupt received, closing connection.")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("Write close error:", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
