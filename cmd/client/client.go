package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
	umnet "unsermarkt/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	agent := flag.Uint("agent", 0, "Agent id (compulsory, nonzero)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'suspend', 'resume']")

	// Order parameters.
	security := flag.Uint("security", 1, "Instrument id")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	kindStr := flag.String("kind", "limit", "Order kind: 'limit', 'market' or 'mtl'")
	price := flag.String("price", "0", "Limit price, e.g. 12.10")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")
	tifStr := flag.String("tif", "GTC", "Time in force")

	// Cancel/suspend/resume parameters.
	orderID := flag.Uint("id", 0, "Order id to cancel/suspend/resume")

	flag.Parse()

	if *agent == 0 {
		fmt.Println("Error: -agent is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as agent %d\n", *serverAddr, *agent)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		px, err := fixed.Parse(*price)
		if err != nil {
			log.Fatalf("Bad price %q: %v", *price, err)
		}
		for _, q := range parseQuantities(*qtyStr) {
			order := common.Order{
				AgentID:    uint32(*agent),
				SecurityID: uint32(*security),
				Price:      px,
				Quantity:   q,
				Side:       parseSide(*sideStr),
				Kind:       parseKind(*kindStr),
				TIF:        parseTIF(*tifStr),
			}
			if _, err := conn.Write(umnet.EncodeOrder(order)); err != nil {
				log.Printf("Failed to place order (qty %d): %v", q, err)
				continue
			}
			fmt.Printf("-> Sent %s\n", order)
			// Pace sends so each frame stands alone on the wire.
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel", "suspend", "resume":
		if *orderID == 0 {
			log.Fatalf("Error: -id is required for %s", *action)
		}
		typeOf := umnet.CancelOrder
		switch strings.ToLower(*action) {
		case "suspend":
			typeOf = umnet.SuspendOrder
		case "resume":
			typeOf = umnet.ResumeOrder
		}
		if _, err := conn.Write(umnet.EncodeOrderRef(typeOf, common.OrderID(*orderID))); err != nil {
			log.Fatalf("Failed to send %s request: %v", *action, err)
		}
		fmt.Printf("-> Sent %s request for order %d\n", *action, *orderID)

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// readReports decodes and prints frames arriving from the server.
func readReports(conn net.Conn) {
	buffer := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			log.Printf("Connection closed: %v", err)
			os.Exit(0)
		}
		printReport(buffer[:n])
	}
}

func printReport(frame []byte) {
	if len(frame) < 2 {
		return
	}
	payload := frame[2:]
	switch umnet.ReportType(binary.BigEndian.Uint16(frame[0:2])) {
	case umnet.OrderAck:
		ack, err := umnet.DecodeAck(payload)
		if err != nil {
			log.Printf("Bad ack: %v", err)
			return
		}
		fmt.Printf("<- ack order=%d code=%d remaining=%d\n", ack.ID, ack.Code, ack.Remaining)
	case umnet.ExecutionReport:
		m, err := umnet.DecodeMatch(payload)
		if err != nil {
			log.Printf("Bad execution report: %v", err)
			return
		}
		fmt.Printf("<- %s\n", m)
	case umnet.ErrorReport:
		text, err := umnet.DecodeError(payload)
		if err != nil {
			log.Printf("Bad error report: %v", err)
			return
		}
		fmt.Printf("<- error: %s\n", text)
	}
}

// parseQuantities splits a comma-separated string into quantities.
func parseQuantities(input string) []uint32 {
	parts := strings.Split(input, ",")
	var result []uint32
	for _, p := range parts {
		q, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			log.Fatalf("Bad quantity %q: %v", p, err)
		}
		result = append(result, uint32(q))
	}
	return result
}

func parseSide(s string) common.Side {
	if strings.ToLower(s) == "sell" {
		return common.Sell
	}
	return common.Buy
}

func parseKind(s string) common.OrderKind {
	switch strings.ToLower(s) {
	case "market":
		return common.Market
	case "mtl":
		return common.MarketToLimit
	}
	return common.Limit
}

func parseTIF(s string) common.TimeInForce {
	for t := common.GTD; t <= common.MIT; t++ {
		if strings.EqualFold(t.String(), s) {
			return t
		}
	}
	return common.GTC
}
