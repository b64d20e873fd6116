// Package dnsd implements a small local DNS responder that resolves every
// name under the configured TLD to the loopback address. Pointing the OS
// resolver for the TLD at this server (e.g. via an /etc/resolver file on
// macOS) makes project domains resolvable without editing the hosts file.
package dnsd

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/miekg/dns"
)

// NewServer constructs a DNS server on addr (UDP) answering A 127.0.0.1 and
// AAAA ::1 for any name ending in ".<tld>." and NXDOMAIN for everything
// else. Call ListenAndServe on the result; shut it down with
// ShutdownContext.
func NewServer(addr string, tld string, logger *log.Logger) *dns.Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	suffix := "." + strings.ToLower(strings.Trim(tld, ".")) + "."

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, request *dns.Msg) {
		response := getResponse(request, suffix, logger)
		w.WriteMsg(response)
	})

	return &dns.Server{
		Addr:    addr,
		Net:     "udp",
		Handler: mux,
	}
}

func getResponse(request *dns.Msg, suffix string, logger *log.Logger) *dns.Msg {
	var response dns.Msg
	response.SetReply(request)
	response.Compress = false

	if request.Opcode != dns.OpcodeQuery {
		return &response
	}

	var answer []dns.RR
	for _, q := range response.Question {
		if !strings.HasSuffix(strings.ToLower(q.Name), suffix) {
			response.Rcode = dns.RcodeNameError
			return &response
		}

		var (
			rr  dns.RR
			err error
		)
		switch q.Qtype {
		case dns.TypeA:
			rr, err = dns.NewRR(fmt.Sprintf("%s A 127.0.0.1", q.Name))
		case dns.TypeAAAA:
			rr, err = dns.NewRR(fmt.Sprintf("%s AAAA ::1", q.Name))
		case dns.TypeHTTPS:
			rr, err = dns.NewRR(fmt.Sprintf("%s HTTPS 1 127.0.0.1", q.Name))
		default:
			err = fmt.Errorf("unsupported question type %d", q.Qtype)
		}
		if err != nil {
			logger.Printf("%s %s: %v", dns.TypeToString[q.Qtype], q.Name, err)
			return &response
		}
		answer = append(answer, rr)
	}

	response.Answer = answer
	return &response
}
