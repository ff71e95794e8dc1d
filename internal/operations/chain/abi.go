package chain

const aggregatorABI = `[
  {"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],
   "outputs":[
     {"name":"roundId","type":"uint80"},
     {"name":"answer","type":"int256"},
     {"name":"startedAt","type":"uint256"},
     {"name":"updatedAt","type":"uint256"},
     {"name":"answeredInRound","type":"uint80"}]},
  {"name":"decimals","type":"function","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint8"}]}
]`

const predictionABI = `[
  {"name":"currentEpoch","type":"function","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"intervalSeconds","type":"function","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"bufferSeconds","type":"function","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"rounds","type":"function","stateMutability":"view",
   "inputs":[{"name":"epoch","type":"uint256"}],
   "outputs":[
     {"name":"epoch","type":"uint256"},
     {"name":"startTimestamp","type":"uint256"},
     {"name":"lockTimestamp","type":"uint256"},
     {"name":"closeTimestamp","type":"uint256"},
     {"name":"lockPrice","type":"int256"},
     {"name":"closePrice","type":"int256"},
     {"name":"lockOracleId","type":"uint256"},
     {"name":"closeOracleId","type":"uint256"},
     {"name":"totalAmount","type":"uint256"},
     {"name":"bullAmount","type":"uint256"},
     {"name":"bearAmount","type":"uint256"},
     {"name":"rewardBaseCalAmount","type":"uint256"},
     {"name":"rewardAmount","type":"uint256"},
     {"name":"oracleCalled","type":"bool"}]}
]`
