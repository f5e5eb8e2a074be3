package config

// DefaultValues is the default configuration for the slot auction node
const DefaultValues = `
[Log]
Level = "info"
Out = ["stdout"]

[Auction]
MinBid = "1"
MaxSlotsPerPlayer = 2
SplitRatio = 7500
FeeRatio = 500
RoundDuration = "1h"
AntiSnipeWindow = "60s"
AntiSnipeExtension = "60s"
EmergencyGrace = "24h"
AutoAdvanceThreshold = "1"

[Database]
Driver = "sqlite3"

[Database.SQLite]
Path = "/var/hermez/slotauction.sqlite"

[Database.PostgreSQL]
PortWrite = 5432
HostWrite = "localhost"
UserWrite = "hermez"
NameWrite = "slotauction"

[API]
Address = "0.0.0.0:8086"
Writes = false
ReadTimeout = "30s"
WriteTimeout = "30s"
MaxSQLConnections = 100
SQLConnectionTimeout = "2s"
SignatureMaxAge = "5m"

[Ledger]
Timeout = "10s"

[Arbiter]
Timeout = "30s"
RateLimit = 1.0
Burst = 1

[Keeper]
Interval = "10s"

[Debug]
MeddlerLogs = false
GinDebugMode = false
`
