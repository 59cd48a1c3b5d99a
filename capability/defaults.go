package capability

// countDefault bounds commands that otherwise run until interrupted.
func countDefault(n string) []ArgDefault {
	return []ArgDefault{{Unless: []string{"-c", "-w"}, Prepend: []string{"-c", n}}}
}

// Defaults returns the built-in network diagnostic capabilities.
func Defaults() []Descriptor {
	return []Descriptor{
		{Name: "ping", Executable: "ping", Package: "iputils-ping", Description: "Test connectivity", Usage: "ping -c 4 [host]", Defaults: countDefault("4")},
		{Name: "nslookup", Executable: "nslookup", Package: "dnsutils", Description: "DNS lookup", Usage: "nslookup [domain]"},
		{Name: "dig", Executable: "dig", Package: "dnsutils", Description: "DNS query", Usage: "dig [domain]"},
		{Name: "host", Executable: "host", Package: "dnsutils", Description: "DNS host lookup", Usage: "host [domain]"},
		{Name: "nmap", Executable: "nmap", Package: "nmap", Risk: RiskSensitive, Description: "Network scanning", Usage: "nmap [target] [options]"},
		{Name: "traceroute", Executable: "traceroute", Package: "traceroute", Description: "Trace route", Usage: "traceroute [host]"},
		{Name: "whois", Executable: "whois", Package: "whois", Description: "Domain info", Usage: "whois [domain]"},
		{Name: "curl", Executable: "curl", Package: "curl", Description: "HTTP requests", Usage: "curl [url]"},
		{Name: "wget", Executable: "wget", Package: "wget", Description: "Download", Usage: "wget [url]"},
		{Name: "netstat", Executable: "netstat", Package: "net-tools", Description: "Network stats", Usage: "netstat -tuln"},
		{Name: "ifconfig", Executable: "ifconfig", Package: "net-tools", Description: "Network config", Usage: "ifconfig"},
		{Name: "arp", Executable: "arp", Package: "net-tools", Description: "ARP table", Usage: "arp -a"},
		{Name: "ncat", Executable: "ncat", Package: "ncat", Risk: RiskSensitive, Description: "Network tool", Usage: "ncat [options]"},
		{Name: "tcpdump", Executable: "tcpdump", Package: "tcpdump", Risk: RiskSensitive, Description: "Packet capture", Usage: "tcpdump [options]",
			Defaults: []ArgDefault{{Unless: []string{"-c"}, Prepend: []string{"-c", "20"}}}},
	}
}
